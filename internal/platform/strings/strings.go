// Package strings carries small string and slice helpers shared across packages
package strings

import std "strings"

// IfEmpty substitutes def when in has no elements
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// ContainsFold reports whether sub occurs in s ignoring case
func ContainsFold(s, sub string) bool {
	return std.Contains(std.ToLower(s), std.ToLower(sub))
}

// MustString panics when s is blank; name identifies the missing value
// in the panic message
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a mount path like /backfill: one leading slash,
// no trailing slash. A bare root (or blank) input panics
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}
