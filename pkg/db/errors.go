package db

import "strings"

// IsUniqueViolation reports whether err references a unique-constraint
// violation. Matching on message text also covers sqlite's
// "UNIQUE constraint failed: table.column" wording in tests.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
