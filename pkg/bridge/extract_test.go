package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRecord(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		prefix       string
		want         any
		wantFallback bool
	}{
		{
			name:   "log lines then result",
			stdout: "INFO: starting\n{\"status\":\"ok\",\"values\":[]}",
			want:   map[string]any{"status": "ok", "values": []any{}},
		},
		{
			name:   "trailing newlines and blank lines",
			stdout: "connecting\n\n{\"type\":\"data\"}\n\n\n",
			want:   map[string]any{"type": "data"},
		},
		{
			name:   "crlf output",
			stdout: "嘗試連線到 Modbus 伺服器\r\n{\"n\":1}\r\n",
			want:   map[string]any{"n": json.Number("1")},
		},
		{
			name:   "bare carriage returns",
			stdout: "progress 10%\rprogress 100%\r[1,2]",
			want:   []any{json.Number("1"), json.Number("2")},
		},
		{
			name:   "scalar result",
			stdout: "done\n42",
			want:   json.Number("42"),
		},
		{
			name:   "null result",
			stdout: "done\nnull",
			want:   nil,
		},
		{
			name:   "only the last json line counts",
			stdout: "{\"type\":\"connection_success\"}\n{\"type\":\"heartbeat\"}",
			want:   map[string]any{"type": "heartbeat"},
		},
		{
			name:         "not json",
			stdout:       "not json at all",
			want:         map[string]any{"raw": "not json at all"},
			wantFallback: true,
		},
		{
			name:         "json earlier but text last",
			stdout:       "{\"a\":1}\n等待 3 秒後重試...\n",
			want:         map[string]any{"raw": "{\"a\":1}\n等待 3 秒後重試...\n"},
			wantFallback: true,
		},
		{
			name:         "trailing garbage after value",
			stdout:       "{\"a\":1} extra",
			want:         map[string]any{"raw": "{\"a\":1} extra"},
			wantFallback: true,
		},
		{
			name:         "empty output",
			stdout:       "",
			want:         map[string]any{"raw": ""},
			wantFallback: true,
		},
		{
			name:         "whitespace only output",
			stdout:       " \n\t\n",
			want:         map[string]any{"raw": " \n\t\n"},
			wantFallback: true,
		},
		{
			name:   "prefix selects framed line",
			stdout: "RESULT:{\"a\":1}\n{\"type\":\"heartbeat\"}\nbye",
			prefix: "RESULT:",
			want:   map[string]any{"a": json.Number("1")},
		},
		{
			name:   "prefix picks the last framed line",
			stdout: "RESULT:{\"a\":1}\nRESULT: {\"a\":2}",
			prefix: "RESULT:",
			want:   map[string]any{"a": json.Number("2")},
		},
		{
			name:         "prefix missing",
			stdout:       "{\"a\":1}",
			prefix:       "RESULT:",
			want:         map[string]any{"raw": "{\"a\":1}"},
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback := ExtractRecord(tt.stdout, tt.prefix)
			assert.Equal(t, tt.wantFallback, fallback)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractRecord_FallbackKeepsBytes(t *testing.T) {
	stdout := "  line one\r\n\tline two \x00\n   "

	got, fallback := ExtractRecord(stdout, "")
	require.True(t, fallback)

	raw := got.(map[string]any)[RawField].(string)
	assert.Equal(t, []byte(stdout), []byte(raw))
}

func TestMarshalRecord(t *testing.T) {
	record, _ := ExtractRecord("x\n{\"value\":21.50,\"tag\":\"<a&b>\"}", "")

	out, err := MarshalRecord(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":21.50,"tag":"<a&b>"}`, string(out))
	assert.Contains(t, string(out), "21.50")
	assert.Contains(t, string(out), "<a&b>")
}
