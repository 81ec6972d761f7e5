// Package pts generates presentation timestamps for encoded frames.
//
// All values are in a 1/1000 time base. A Strategy proposes a value with
// Next and records it with Commit once the frame has been accepted, so a
// rejected frame never moves the sequence.
package pts

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Trick selects how timestamps are produced.
type Trick int

const (
	// Auto picks Even or Increase from the target URL. See AutoTrick.
	Auto Trick = -1
	// Even yields strictly increasing even values that follow wall-clock
	// time. Suited to live streams.
	Even Trick = 0
	// Increase derives the value from the frame sequence and frame rate.
	// Suited to files.
	Increase Trick = 1
	// Relative uses milliseconds elapsed since the first frame.
	Relative Trick = 2
	// Direct uses the caller-supplied anchor verbatim.
	Direct Trick = 3
)

// EvenTolerance is the drift in milliseconds after which Even re-syncs to
// wall-clock time.
const EvenTolerance = 6

// ErrNotIncreasing is returned by Direct when the anchor does not exceed
// the previous value.
var ErrNotIncreasing = errors.New("pts: anchor is not increasing")

// ErrUnknownTrick is returned for values outside the known set.
var ErrUnknownTrick = errors.New("pts: unknown trick")

var trickNames = map[Trick]string{
	Auto:     "auto",
	Even:     "even",
	Increase: "increase",
	Relative: "relative",
	Direct:   "direct",
}

// String returns the lower-case name of the trick.
func (t Trick) String() string {
	if s, ok := trickNames[t]; ok {
		return s
	}
	return fmt.Sprintf("trick(%d)", int(t))
}

// Valid reports whether t is one of the known tricks, Auto included.
func (t Trick) Valid() bool {
	_, ok := trickNames[t]
	return ok
}

// ParseTrick accepts a trick name ("even", "increase", ...) or its
// numeric value ("-1" through "3").
func ParseTrick(s string) (Trick, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range trickNames {
		if s == name || s == fmt.Sprint(int(t)) {
			return t, nil
		}
	}
	return Auto, fmt.Errorf("%w: %q", ErrUnknownTrick, s)
}

// AutoTrick resolves Auto for a target URL: live protocols get Even,
// everything else Increase.
func AutoTrick(url string) Trick {
	u := strings.ToLower(url)
	for _, scheme := range []string{"rtmp://", "rtmps://", "rtsp://", "srt://"} {
		if strings.HasPrefix(u, scheme) {
			return Even
		}
	}
	return Increase
}

// Strategy holds the timestamp state of one encoding context.
type Strategy struct {
	trick   Trick
	fps     int
	start   time.Time
	started bool
	prev    int64
	hasPrev bool
}

// New returns a Strategy. Auto must be resolved with AutoTrick first, and
// Increase needs a positive fps.
func New(trick Trick, fps int) (*Strategy, error) {
	switch trick {
	case Even, Relative, Direct:
	case Increase:
		if fps <= 0 {
			return nil, fmt.Errorf("pts: increase needs a positive frame rate, got %d", fps)
		}
	case Auto:
		return nil, fmt.Errorf("%w: auto must be resolved before use", ErrUnknownTrick)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTrick, int(trick))
	}
	return &Strategy{trick: trick, fps: fps}, nil
}

// Trick returns the strategy's trick.
func (s *Strategy) Trick() Trick { return s.trick }

// Last returns the most recently committed value.
func (s *Strategy) Last() (int64, bool) { return s.prev, s.hasPrev }

// Next proposes the timestamp for frame seq at wall-clock time now.
// anchor is only consulted by Direct. The first call starts the clock.
func (s *Strategy) Next(seq int64, now time.Time, anchor int64) (int64, error) {
	if !s.started {
		s.start = now
		s.started = true
	}
	elapsed := now.Sub(s.start).Milliseconds()

	switch s.trick {
	case Even:
		if !s.hasPrev {
			return 0, nil
		}
		v := s.prev + 2
		if abs(elapsed-v) > EvenTolerance {
			if sync := elapsed + elapsed&1; sync > s.prev {
				v = sync
			}
		}
		return v, nil

	case Increase:
		return int64(math.Round(float64(seq) * 1000 / float64(s.fps))), nil

	case Relative:
		if s.hasPrev && elapsed <= s.prev {
			return s.prev + 1, nil
		}
		return elapsed, nil

	case Direct:
		if s.hasPrev && anchor <= s.prev {
			return 0, fmt.Errorf("%w: %d after %d", ErrNotIncreasing, anchor, s.prev)
		}
		return anchor, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownTrick, int(s.trick))
}

// Commit records v as the value of the last accepted frame.
func (s *Strategy) Commit(v int64) {
	s.prev = v
	s.hasPrev = true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
