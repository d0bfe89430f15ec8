package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// RawField is the key under which unparseable output is passed through.
const RawField = "raw"

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ExtractRecord parses the result line of stdout. Without a prefix the result
// line is the last non-empty line; with one it is the last non-empty line
// carrying that prefix, which is stripped before parsing.
//
// When no line parses as a single JSON value the record is {"raw": stdout}
// holding the untouched output, and the second return value is true.
func ExtractRecord(stdout string, prefix string) (any, bool) {
	if line, ok := resultLine(stdout, prefix); ok {
		if value, err := decodeJSON(line); err == nil {
			return value, false
		}
	}
	return map[string]any{RawField: stdout}, true
}

func resultLine(stdout string, prefix string) (string, bool) {
	lines := strings.Split(lineBreaks.Replace(strings.TrimSpace(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if prefix == "" {
			return line, true
		}
		if rest, found := strings.CutPrefix(line, prefix); found {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(line string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return value, nil
}

// MarshalRecord renders a record as compact JSON.
func MarshalRecord(record any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
