package entity

import "strings"

type MFAType int16

const (
	MFATypeNone  MFAType = 0
	MFATypeTOTP  MFAType = 1
	MFATypeEmail MFAType = 2
	MFATypeSMS   MFAType = 3
)

func (t MFAType) String() string {
	switch t {
	case MFATypeTOTP:
		return "TOTP"
	case MFATypeEmail:
		return "EMAIL"
	case MFATypeSMS:
		return "SMS"
	default:
		return "NONE"
	}
}

// ParseMFAType is case-insensitive and returns MFATypeNone for anything unknown.
func ParseMFAType(s string) MFAType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TOTP":
		return MFATypeTOTP
	case "EMAIL":
		return MFATypeEmail
	case "SMS":
		return MFATypeSMS
	default:
		return MFATypeNone
	}
}

type MFAStatus int16

const (
	MFAStatusDisabled MFAStatus = 0
	MFAStatusPending  MFAStatus = 1
	MFAStatusEnabled  MFAStatus = 2
)

func (s MFAStatus) String() string {
	switch s {
	case MFAStatusPending:
		return "PENDING"
	case MFAStatusEnabled:
		return "ENABLED"
	default:
		return "DISABLED"
	}
}

type UserStatus int16

const (
	UserStatusUnknown    UserStatus = 0
	UserStatusUnverified UserStatus = 1
	UserStatusActive     UserStatus = 2
	UserStatusBanned     UserStatus = 3
)

func (us UserStatus) String() string {
	switch us {
	case UserStatusUnverified:
		return "Unverified"
	case UserStatusActive:
		return "Active"
	case UserStatusBanned:
		return "Banned"
	default:
		return "Unknown"
	}
}
