// Package hash holds the one-way functions used for secrets at rest.
//
// Digest is unsalted and deterministic so a presented credential can be looked
// up by its hash. Bcrypt is salted and used for long-lived client secrets.
package hash
