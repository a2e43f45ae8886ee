package entity

import (
	"strings"
)

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

func ChannelFromString(raw string) Channel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email":
		return ChannelEmail
	case "sms":
		return ChannelSMS
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	default:
		return "unknown"
	}
}

// TriggerKey selects the template of a notification.
type TriggerKey string

const (
	TriggerKeyEmailVerifyCode TriggerKey = "email_verify_code"
	TriggerKeyMFACode         TriggerKey = "mfa_code"
	TriggerKeyEmailVerifyLink TriggerKey = "email_verify_link"
	TriggerKeyPasswordReset   TriggerKey = "password_reset"
	TriggerKeyGuestAccess     TriggerKey = "guest_access"
	TriggerKeyShareAccess     TriggerKey = "share_access"
)

func (tk TriggerKey) String() string {
	return string(tk)
}

// Template is the subject and body of one trigger. Body is an html/template.
type Template struct {
	TriggerKey TriggerKey
	Subject    string
	Body       string
}
