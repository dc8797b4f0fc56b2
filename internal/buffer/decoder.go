package buffer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Record is one decoded pageview event.
//
// NewVisitor marks the first request of a visitor on the site and drives the
// site-level visitor count. UniqueView marks the first view of a particular
// page by a visitor and drives the per-page and per-referrer visitor counts.
// The two flags are distinct signals and are never interchangeable.
type Record struct {
	Path       string
	NewVisitor bool
	UniqueView bool
	Referrer   string
}

// DecodeError reports a buffer line that does not decode into a Record.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("buffer: malformed event line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeLine decodes one buffer line into a Record. The wire format is a JSON
// 4-tuple: ["<path>", <new_visitor>, <unique_view>, "<referrer>"].
//
// Leading and trailing whitespace is stripped. A blank line is skipped, not an
// error: ok is false and err is nil. Any other shape fails closed with a
// *DecodeError.
func DecodeLine(line []byte) (Record, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, false, nil
	}

	var parts []json.RawMessage
	if err := sonic.Unmarshal(line, &parts); err != nil {
		return Record{}, false, &DecodeError{Line: string(line), Err: err}
	}
	if len(parts) != 4 {
		return Record{}, false, &DecodeError{
			Line: string(line),
			Err:  fmt.Errorf("expected 4 fields, got %d", len(parts)),
		}
	}

	var rec Record
	fields := []struct {
		name string
		dst  any
	}{
		{"path", &rec.Path},
		{"new_visitor", &rec.NewVisitor},
		{"unique_view", &rec.UniqueView},
		{"referrer", &rec.Referrer},
	}
	for i, f := range fields {
		if err := sonic.Unmarshal(parts[i], f.dst); err != nil {
			return Record{}, false, &DecodeError{
				Line: string(line),
				Err:  fmt.Errorf("field %s: %w", f.name, err),
			}
		}
	}

	return rec, true, nil
}
