package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/metrika/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise the
// CLI flag, otherwise the default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagInt resolves integer values with minimum validation.
func FromEnvOrFlagInt(envKey string, flagVal, def, min int) int {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if n, err := strconv.Atoi(ev); err == nil && n >= min {
			return n
		}
	}
	if flagVal != 0 && flagVal >= min {
		return flagVal
	}
	return def
}

// FromEnvOrFlagDuration reads a duration (bare seconds or Go syntax) with
// the usual ENV > flag > default precedence. flagSeconds equal to
// flagSentinel means the flag was not set.
func FromEnvOrFlagDuration(envKey string, flagSeconds, flagSentinel, defSeconds int) time.Duration {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if d := misc.GetDuration(envKey, 0); d > 0 {
			return d
		}
		return time.Duration(defSeconds) * time.Second
	}
	if flagSeconds != flagSentinel && flagSeconds > 0 {
		return time.Duration(flagSeconds) * time.Second
	}
	return time.Duration(defSeconds) * time.Second
}

// ParseTags parses a "k=v,k2=v2" tag list. Malformed pairs are skipped.
func ParseTags(s string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FormatTags renders a tag map back into the canonical "k=v,k2=v2" form.
func FormatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return strings.Join(parts, ",")
}
