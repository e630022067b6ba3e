package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const shellEnvPrefix = "SHEXEC_"

// GetShellEnv returns the value of the SHEXEC_ prefixed process variable.
func GetShellEnv(key string) string {
	return os.Getenv(shellEnvPrefix + key)
}

// GetShellEnvBool parses a SHEXEC_ boolean variable. The second return value
// is false when it is unset or invalid.
func GetShellEnvBool(key string) (bool, bool) {
	v := GetShellEnv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

// GetShellEnvDuration parses a SHEXEC_ duration variable like "2s".
func GetShellEnvDuration(key string) (time.Duration, bool) {
	v := GetShellEnv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	return d, err == nil
}

// GetShellEnvStringSlice splits a comma separated SHEXEC_ variable, dropping
// empty entries.
func GetShellEnvStringSlice(key string) ([]string, bool) {
	v := GetShellEnv(key)
	if v == "" {
		return nil, false
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}
