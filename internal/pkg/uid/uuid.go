package uid

import "github.com/google/uuid"

// UUID yields time-ordered v7 UUIDs.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

// Generate falls back to a random v4 if the v7 clock source fails.
func (*UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsUUID reports whether s parses as any UUID version.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
