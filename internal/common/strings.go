// internal/common/strings.go
package common

import "strings"

// SplitList splits comma-separated values, trims them and drops empties
// and duplicates, preserving order. Each element of in may itself be a list.
func SplitList(in ...string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Dash renders an empty string as "-".
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
