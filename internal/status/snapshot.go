// Package status defines the light status model shared by every transport:
// the snapshot a transport reports and the request shape it submits.
package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Wire keys that are not channel ids.
const (
	KeyDuration = "duration"
	KeyEvent    = "event"
)

// Event sources.
const (
	SourceHTTP   = "http"
	SourceMQTT   = "mqtt"
	SourceButton = "button"
)

// Level is the public 8-bit brightness of one channel.
type Level struct {
	ID    string
	Value uint8
}

// Snapshot is the brightness of every channel at one instant, in engine
// channel order. Values are committed targets: while a fade is running the
// snapshot already shows where it will end.
//
// It is a value type; callers must not modify Levels.
type Snapshot struct {
	Levels   []Level
	Duration time.Duration // only set for snapshots produced by a set request
	Event    string        // advisory source label
}

// Value returns the level of the channel with the given id.
func (s Snapshot) Value(id string) (uint8, bool) {
	for _, l := range s.Levels {
		if l.ID == id {
			return l.Value, true
		}
	}
	return 0, false
}

// Plain returns the snapshot without duration and event.
func (s Snapshot) Plain() Snapshot {
	return Snapshot{Levels: s.Levels}
}

// MarshalJSON encodes channels in order followed by the optional
// duration (ms) and event:
//
//	{"R":128,"G":0,"B":0,"duration":1000,"event":"http"}
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range s.Levels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", l.Value)
	}
	sep := func() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
	}
	if ms := s.Duration.Milliseconds(); ms > 0 {
		sep()
		fmt.Fprintf(&buf, "%q:%d", KeyDuration, ms)
	}
	if s.Event != "" {
		ev, err := json.Marshal(s.Event)
		if err != nil {
			return nil, err
		}
		sep()
		fmt.Fprintf(&buf, "%q:", KeyEvent)
		buf.Write(ev)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a snapshot, keeping channel order as it appears in
// the document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("status: snapshot must be a JSON object")
	}

	var out Snapshot
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		switch key {
		case KeyEvent:
			if err := dec.Decode(&out.Event); err != nil {
				return fmt.Errorf("status: event: %w", err)
			}
		case KeyDuration:
			var n json.Number
			if err := dec.Decode(&n); err != nil {
				return fmt.Errorf("status: duration: %w", err)
			}
			ms, err := n.Int64()
			if err != nil {
				return fmt.Errorf("status: duration: %w", err)
			}
			out.Duration = time.Duration(ms) * time.Millisecond
		default:
			var n json.Number
			if err := dec.Decode(&n); err != nil {
				return fmt.Errorf("status: channel %q: %w", key, err)
			}
			v, err := n.Int64()
			if err != nil || v < 0 || v > MaxLevel {
				return fmt.Errorf("status: channel %q: invalid level %s", key, n)
			}
			out.Levels = append(out.Levels, Level{ID: key, Value: uint8(v)})
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// String returns the JSON encoding, for logging.
func (s Snapshot) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}
