//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/obinnaokechukwu/ffio/pts"
)

// ParamsFromEnv builds CodecParams from environment variables named
// prefix+"WIDTH", prefix+"HEIGHT", ... An empty prefix means "FFIO_".
// Unset or unparsable numeric variables keep their defaults; an invalid
// PTS trick or SEI UUID is an error.
func ParamsFromEnv(prefix string) (CodecParams, error) {
	if prefix == "" {
		prefix = "FFIO_"
	}
	key := func(name string) string { return prefix + name }

	p := CodecParams{
		Width:        getIntEnv(key("WIDTH"), 0),
		Height:       getIntEnv(key("HEIGHT"), 0),
		Bitrate:      getIntEnv(key("BITRATE"), 0),
		MaxBitrate:   getIntEnv(key("MAX_BITRATE"), 0),
		FPS:          getIntEnv(key("FPS"), 0),
		GOP:          getIntEnv(key("GOP"), 0),
		BFrames:      getIntEnv(key("B_FRAMES"), 0),
		PTSTrick:     pts.Auto,
		Flags:        getEnv(key("FLAGS"), ""),
		Flags2:       getEnv(key("FLAGS2"), ""),
		Profile:      getEnv(key("PROFILE"), ""),
		Preset:       getEnv(key("PRESET"), ""),
		Tune:         getEnv(key("TUNE"), ""),
		PixFmt:       getEnv(key("PIX_FMT"), ""),
		Format:       getEnv(key("FORMAT"), ""),
		Codec:        getEnv(key("CODEC"), ""),
		UseAnnexBSEI: getBoolEnv(key("ANNEXB_SEI"), false),
	}

	if v := getEnv(key("PTS_TRICK"), ""); v != "" {
		t, err := pts.ParseTrick(v)
		if err != nil {
			return CodecParams{}, fmt.Errorf("ffio: %s: %w", key("PTS_TRICK"), err)
		}
		p.PTSTrick = t
	}
	if v := getEnv(key("SEI_UUID"), ""); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return CodecParams{}, fmt.Errorf("ffio: %s: %w", key("SEI_UUID"), err)
		}
		p.SEIUUID = id
	}
	return p, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
