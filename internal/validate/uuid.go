// Package validate checks inbound identifiers before storage is touched
package validate

import "regexp"

// Postgres generates v4 UUIDs, so the check pins the version nibble to 4
// and the variant nibble to 8, 9, a or b.
var uuidV4 = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// UUID reports whether s is a well-formed v4 UUID in canonical
// 8-4-4-4-12 form, case-insensitively. Pure function, no side effects.
func UUID(s string) bool {
	return uuidV4.MatchString(s)
}
