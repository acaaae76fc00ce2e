package validators

import "strings"

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// QueryString returns the trimmed query value, cut to maxLen.
func QueryString(values map[string][]string, key string, maxLen int) string {
	vs := values[key]
	if len(vs) == 0 {
		return ""
	}
	return SanitizeString(vs[0], maxLen)
}
