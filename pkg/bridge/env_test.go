package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnv(t *testing.T) {
	tests := []struct {
		name    string
		ambient []string
		payload string
		want    []string
	}{
		{
			name:    "appends payload and run flag",
			ambient: []string{"PATH=/usr/bin", "LANG=zh_TW.UTF-8"},
			payload: `{"points":[]}`,
			want: []string{
				"PATH=/usr/bin",
				"LANG=zh_TW.UTF-8",
				`MODBUS_CONFIG_JSON={"points":[]}`,
				"RUN_ONCE=1",
			},
		},
		{
			name:    "replaces stale entries",
			ambient: []string{"RUN_ONCE=0", "HOME=/root", "MODBUS_CONFIG_JSON=old"},
			payload: "new",
			want:    []string{"HOME=/root", "MODBUS_CONFIG_JSON=new", "RUN_ONCE=1"},
		},
		{
			name:    "keeps values containing equals signs",
			ambient: []string{"DSN=host=db user=gw", "RUN_ONCE_EXTRA=x"},
			payload: "a=b",
			want:    []string{"DSN=host=db user=gw", "RUN_ONCE_EXTRA=x", "MODBUS_CONFIG_JSON=a=b", "RUN_ONCE=1"},
		},
		{
			name:    "empty ambient and payload",
			ambient: nil,
			payload: "",
			want:    []string{"MODBUS_CONFIG_JSON=", "RUN_ONCE=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildEnv(tt.ambient, tt.payload))
		})
	}
}

func TestBuildEnv_DoesNotMutateAmbient(t *testing.T) {
	ambient := make([]string, 2, 8)
	ambient[0] = "RUN_ONCE=0"
	ambient[1] = "USER=gateway"

	env := BuildEnv(ambient, "{}")
	env[0] = "USER=changed"

	assert.Equal(t, []string{"RUN_ONCE=0", "USER=gateway"}, ambient)
	assert.Empty(t, ambient[:cap(ambient)][2])
}
