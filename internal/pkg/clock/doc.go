// Package clock lets business code take time as a dependency so expiry
// arithmetic can be pinned in tests.
package clock
