package utils

// ClaimStrings reads a JSON claim that holds a string or a list of strings.
// Non-string list entries are skipped.
func ClaimStrings(v any) []string {
	switch vals := v.(type) {
	case string:
		return []string{vals}
	case []string:
		return append([]string{}, vals...)
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
