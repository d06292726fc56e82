// Package typeutil provides safe type coercion helpers following the comma-ok
// idiom. They tolerate the loosely typed values produced by JSON unmarshaling,
// which is how stored preferences come back from disk.
package typeutil

// SafeStringSlice safely coerces value to []string.
// Handles both []string and []any (common from JSON unmarshaling); non-string
// elements are skipped.
func SafeStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
