// Package event holds the message contracts exchanged between modules over
// the broker. Every message carries an EventID used by consumers to drop
// redeliveries.
package event

import "time"

// Channel names the transport a verification code should be delivered over.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Purpose tells the notification module which wording to use.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposeMFA               Purpose = "mfa"
)

const (
	VerificationCodeIssuedDestination          = "verification_code_issued"
	VerificationCodeIssuedConsumerNotification = "verification_code_issued_notification"
)

type VerificationCodeIssuedMessage struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	FullName  string    `json:"full_name"`
	Channel   Channel   `json:"channel"`
	Purpose   Purpose   `json:"purpose"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	VerificationLinkIssuedDestination          = "verification_link_issued"
	VerificationLinkIssuedConsumerNotification = "verification_link_issued_notification"
)

type VerificationLinkIssuedMessage struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	ClientID  string    `json:"client_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	PasswordResetRequestedDestination          = "password_reset_requested"
	PasswordResetRequestedConsumerNotification = "password_reset_requested_notification"
)

type PasswordResetRequestedMessage struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessKind distinguishes guest codes from share codes.
type AccessKind string

const (
	AccessKindGuest AccessKind = "guest"
	AccessKindShare AccessKind = "share"
)

const (
	AccessCodeIssuedDestination          = "access_code_issued"
	AccessCodeIssuedConsumerNotification = "access_code_issued_notification"
)

type AccessCodeIssuedMessage struct {
	EventID        string     `json:"event_id"`
	Kind           AccessKind `json:"kind"`
	Code           string     `json:"code"`
	Resource       string     `json:"resource"`
	ResourceID     string     `json:"resource_id"`
	Write          bool       `json:"write"`
	RecipientName  string     `json:"recipient_name"`
	RecipientEmail string     `json:"recipient_email"`
	OwnerEmail     string     `json:"owner_email"`
	RedirectURL    string     `json:"redirect_url"`
	ExpiresAt      time.Time  `json:"expires_at"`
}
