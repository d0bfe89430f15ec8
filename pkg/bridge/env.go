package bridge

import "strings"

const (
	// EnvConfigJSON carries the configuration payload to the gateway process.
	EnvConfigJSON = "MODBUS_CONFIG_JSON"
	// EnvRunOnce forces the gateway to run a single acquisition cycle.
	EnvRunOnce = "RUN_ONCE"
	// RunOnceValue is the only value the gateway treats as "run once".
	RunOnceValue = "1"
)

// BuildEnv returns a new environment: ambient without any previous
// EnvConfigJSON or EnvRunOnce entries, followed by both set for this
// invocation. ambient is not modified.
func BuildEnv(ambient []string, payload string) []string {
	env := make([]string, 0, len(ambient)+2)
	for _, kv := range ambient {
		key, _, _ := strings.Cut(kv, "=")
		if key == EnvConfigJSON || key == EnvRunOnce {
			continue
		}
		env = append(env, kv)
	}
	return append(env,
		EnvConfigJSON+"="+payload,
		EnvRunOnce+"="+RunOnceValue,
	)
}
