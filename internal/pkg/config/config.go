package config

import (
	"io"
	"time"
)

// Config is the read-only configuration surface used across the service.
//
// Missing keys resolve to the zero value of the requested type; callers apply
// their own defaults.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint(key string) uint
	GetUint32(key string) uint32
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	// GetSecond, GetMinute and GetHour read an integer and scale it to a duration.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetDuration parses Go duration syntax such as "15m" or "90s".
	GetDuration(key string) time.Duration

	// GetBinary decodes a standard base64 value.
	GetBinary(key string) []byte

	// GetArray splits a comma separated value, dropping blank elements.
	GetArray(key string) []string

	// GetMap parses "k1:v1,k2:v2".
	GetMap(key string) map[string]string
}
