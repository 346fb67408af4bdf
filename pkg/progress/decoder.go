package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decoder parses newline-delimited events from arbitrary chunks. A partial
// trailing line is kept until the next chunk completes it.
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns every complete event. Malformed lines are
// skipped and reported in the returned error.
func (d *Decoder) Feed(chunk []byte) ([]Event, error) {
	d.buf = append(d.buf, chunk...)

	var events []Event
	var errs []error
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		e, ok, err := parseLine(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			events = append(events, e)
		}
	}

	// keep the remainder in a fresh slice so the consumed prefix can be freed
	if len(d.buf) == 0 {
		d.buf = nil
	} else {
		d.buf = append([]byte(nil), d.buf...)
	}
	return events, errors.Join(errs...)
}

// Flush parses a final line that had no trailing newline.
func (d *Decoder) Flush() (*Event, error) {
	line := d.buf
	d.buf = nil
	e, ok, err := parseLine(line)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

// Pending reports how many bytes are buffered.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func parseLine(line []byte) (Event, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false, nil
	}
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return Event{}, false, fmt.Errorf("malformed progress line %q: %w", truncate(line, 80), err)
	}
	return e, true, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ReadAll decodes r until EOF and calls fn for every event. Malformed lines
// are skipped. An error from fn stops reading.
func ReadAll(r io.Reader, fn func(Event) error) error {
	var d Decoder
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			events, _ := d.Feed(chunk[:n])
			for _, e := range events {
				if ferr := fn(e); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read progress stream: %w", err)
		}
	}

	last, err := d.Flush()
	if err != nil {
		return err
	}
	if last != nil {
		return fn(*last)
	}
	return nil
}
