package entity

import "time"

type User struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Status   UserStatus
	Roles    []string
}

// MFAMethod is one second factor of a user. Secret is the sealed TOTP seed
// and is empty for EMAIL and SMS. AttemptsCount lives in the credential
// store, not in the row.
type MFAMethod struct {
	ID              string
	UserID          string
	Type            MFAType
	Status          MFAStatus
	IsDefault       bool
	Secret          []byte
	BackupCodesHash string
	AttemptsCount   int64
	LastVerifiedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m *MFAMethod) IsEnabled() bool { return m.Status == MFAStatusEnabled }

func (m *MFAMethod) IsLocked() bool { return m.AttemptsCount >= MaxAttempts }
