package cache

import "strings"

// Key joins parts with ':' the way every stored key is laid out.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Pattern matches every key under prefix.
func Pattern(prefix string) string {
	return prefix + "*"
}
