//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"strconv"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffio/internal/bindings"
)

// AV_OPT_SEARCH_CHILDREN also searches private codec options (preset, tune, ...).
const AV_OPT_SEARCH_CHILDREN int32 = 1

var (
	avOptSet    func(obj unsafe.Pointer, name, val string, searchFlags int32) int32
	avOptSetInt func(obj unsafe.Pointer, name string, val int64, searchFlags int32) int32
)

func registerOpt(lib uintptr) {
	purego.RegisterLibFunc(&avOptSet, lib, "av_opt_set")
	purego.RegisterLibFunc(&avOptSetInt, lib, "av_opt_set_int")
}

// OptSet sets a string option on any AVClass-enabled struct.
func OptSet(obj unsafe.Pointer, name, value string, searchFlags int32) error {
	if avOptSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSet(obj, name, value, searchFlags), "av_opt_set "+name)
}

// OptSetInt sets an integer option on any AVClass-enabled struct.
func OptSetInt(obj unsafe.Pointer, name string, value int64, searchFlags int32) error {
	if avOptSetInt == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSetInt(obj, name, value, searchFlags), "av_opt_set_int "+name+"="+strconv.FormatInt(value, 10))
}
