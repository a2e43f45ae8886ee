// Package uid generates identifiers: UUIDv7 strings for public ids and
// snowflake numbers for database primary keys.
package uid

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates sortable 64-bit identifiers.
type NumberID interface {
	Generate() int64
}
