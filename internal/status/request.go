package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxLevel is the highest public brightness.
	MaxLevel = 255

	// MaxDuration is the longest fade a request may ask for.
	MaxDuration = 100_000_000 * time.Millisecond
)

// ErrInvalidRequest is returned when a request body is not a JSON object.
var ErrInvalidRequest = errors.New("status: invalid request")

// Request is a normalized set request: target levels by channel id plus an
// optional fade duration applied to every listed channel.
type Request struct {
	Levels   map[string]uint8
	Duration time.Duration
}

// Empty reports whether the request carries no channel levels.
func (r Request) Empty() bool {
	return len(r.Levels) == 0
}

// ParseRequest decodes a JSON set request.
//
// Levels and duration may be integers or numeric strings. Levels are
// clamped to [0, MaxLevel] and entries that are not numbers are dropped.
// A bad duration degrades to 0 (no fade). Only a body that is not a JSON
// object is an error.
func ParseRequest(body []byte) (Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if raw == nil {
		return Request{}, fmt.Errorf("%w: not an object", ErrInvalidRequest)
	}

	req := Request{Levels: make(map[string]uint8)}
	for key, value := range raw {
		switch key {
		case KeyDuration:
			if n, ok := parseRawInt(value); ok {
				req.Duration = clampDuration(n)
			}
		case KeyEvent:
			// Echoed snapshots carry an event label; it is not a channel.
		default:
			if n, ok := parseRawInt(value); ok {
				req.Levels[key] = clampLevel(n)
			}
		}
	}
	return req, nil
}

// RequestFromQuery builds a request from HTTP query arguments, for
// GET /status?R=255&duration=500. The second result is false when no
// usable argument was present.
func RequestFromQuery(q url.Values) (Request, bool) {
	req := Request{Levels: make(map[string]uint8)}
	got := false
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		n, ok := parseInt(values[0])
		if !ok {
			continue
		}
		switch key {
		case KeyDuration:
			req.Duration = clampDuration(n)
		case KeyEvent:
			continue
		default:
			req.Levels[key] = clampLevel(n)
		}
		got = true
	}
	return req, got
}

// parseRawInt accepts a JSON integer or a string holding one.
func parseRawInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return parseInt(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return parseInt(n.String())
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, true
	}
	if errors.Is(err, strconv.ErrRange) {
		// ParseInt saturates to the int64 bound; clamping handles the rest.
		return n, true
	}
	// Integral floats such as 128.0.
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 {
		return math.MaxInt64, true
	}
	if f < math.MinInt64 {
		return math.MinInt64, true
	}
	return int64(f), true
}

func clampLevel(n int64) uint8 {
	if n < 0 {
		return 0
	}
	if n > MaxLevel {
		return MaxLevel
	}
	return uint8(n)
}

func clampDuration(ms int64) time.Duration {
	if ms < 0 {
		return 0
	}
	if ms > MaxDuration.Milliseconds() {
		return MaxDuration
	}
	return time.Duration(ms) * time.Millisecond
}
