package yank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRecord is wrapped by every decode failure.
var ErrMalformedRecord = errors.New("malformed history record")

// maxFloatTime bounds fractional times; beyond it a float64 no longer holds
// every integer millisecond.
const maxFloatTime = 1 << 53

// newlineSentinel replaces newlines inside a content line on disk.
const newlineSentinel = "\x00"

// DecodeError reports the first line of a chunk that failed to decode.
// A decode failure invalidates the whole chunk.
type DecodeError struct {
	// Line is the 1-based line number within the decoded chunk.
	Line int
	// Offset is the byte offset of the line start. DecodeLines reports it
	// relative to the chunk; callers reading at a file offset add their base.
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d (offset %d): %v", e.Line, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MarshalRecord encodes r as a single line, including the trailing newline.
func MarshalRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeRecord(newEncoder(&buf), r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeLines encodes records as consecutive lines.
func EncodeLines(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf)
	for i, r := range records {
		if err := encodeRecord(enc, r); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func newEncoder(buf *bytes.Buffer) *json.Encoder {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return enc
}

func encodeRecord(enc *json.Encoder, r Record) error {
	contents := make([]string, len(r.Contents))
	for i, line := range r.Contents {
		contents[i] = strings.ReplaceAll(line, "\n", newlineSentinel)
	}
	// json.Encoder terminates every value with '\n'.
	return enc.Encode([]any{r.Time, r.Name, string(r.Type), contents})
}

// UnmarshalRecord decodes one line (without its newline).
func UnmarshalRecord(line []byte) (Record, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("%w: want 4 fields, got %d", ErrMalformedRecord, len(fields))
	}

	var r Record
	var err error
	if r.Time, err = decodeTime(fields[0]); err != nil {
		return Record{}, err
	}
	if r.Name, err = decodeString(fields[1], "regname"); err != nil {
		return Record{}, err
	}
	regtype, err := decodeString(fields[2], "regtype")
	if err != nil {
		return Record{}, err
	}
	if r.Type, err = ParseRegType(regtype); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if r.Contents, err = decodeContents(fields[3]); err != nil {
		return Record{}, err
	}
	return r, nil
}

// DecodeLines decodes every complete line of data. Blank lines are skipped.
// Bytes after the last newline are not consumed; consumed reports how many
// bytes were, so a caller can resume once the line is complete.
//
// Any malformed line fails the whole chunk with a *DecodeError.
func DecodeLines(data []byte) (records []Record, consumed int, err error) {
	line := 0
	for consumed < len(data) {
		nl := bytes.IndexByte(data[consumed:], '\n')
		if nl < 0 {
			break
		}
		line++
		raw := data[consumed : consumed+nl]
		if len(bytes.TrimSpace(raw)) > 0 {
			r, err := UnmarshalRecord(raw)
			if err != nil {
				return nil, consumed, &DecodeError{Line: line, Offset: int64(consumed), Err: err}
			}
			records = append(records, r)
		}
		consumed += nl + 1
	}
	return records, consumed, nil
}

func decodeTime(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: time is not a number", ErrMalformedRecord)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: time: %v", ErrMalformedRecord, err)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: time: %v", ErrMalformedRecord, err)
	}
	if f < -maxFloatTime || f > maxFloatTime {
		return 0, fmt.Errorf("%w: time %v out of range", ErrMalformedRecord, f)
	}
	return int64(f), nil
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedRecord, field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedRecord, field, err)
	}
	return s, nil
}

func decodeContents(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: regcontents is not an array", ErrMalformedRecord)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: regcontents: %v", ErrMalformedRecord, err)
	}
	contents := make([]string, len(items))
	for i, item := range items {
		s, err := decodeString(item, fmt.Sprintf("regcontents[%d]", i))
		if err != nil {
			return nil, err
		}
		contents[i] = strings.ReplaceAll(s, newlineSentinel, "\n")
	}
	return contents, nil
}
