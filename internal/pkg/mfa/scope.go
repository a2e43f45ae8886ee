package mfa

// Purpose separates ciphertexts that share a user so one cannot be replayed
// as the other.
type Purpose string

const (
	PurposeTOTPSecret Purpose = "totp_secret"
)

// Scope is bound into AES-GCM as additional authenticated data.
type Scope struct {
	UserID   string
	MethodID string
	Purpose  Purpose
}
