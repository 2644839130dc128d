package util

import "fmt"

// DefaultLogMaxLen caps raw remote payloads stored in audit rows (1KB).
// Full payloads for matched records are kept on the Contact itself.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings before they are written to log rows,
// keeping token-endpoint error bodies and webhook payload excerpts bounded.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
