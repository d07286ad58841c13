package deptree

import "strings"

var rangeOperators = strings.NewReplacer("^", "", "~", "")

// Normalize strips caret and tilde operators from a version spec so it can
// be sent to the registry as a concrete version. Every occurrence is
// removed, not just a leading one. Nothing else about the spec is
// interpreted.
func Normalize(spec string) string {
	return rangeOperators.Replace(spec)
}
