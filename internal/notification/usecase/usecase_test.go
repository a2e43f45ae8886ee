package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/mail"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const testConfig = `
modules:
  notification:
    web_url: https://app.example.com
    support_email: support@example.com
    company_name: Credbite
`

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeMail struct {
	sent []mail.Message
	fail error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestUsecase(t *testing.T) (*Usecase, *fakeMail) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := &fakeMail{}
	uc := NewNotification(Dependency{
		Config:     cfg,
		Clock:      clock.NewFixed(testNow),
		Validator:  v,
		RepoMail:   m,
		Guard:      idempotency.New(credstore.NewRedis(client)),
		Instrument: instrument.NewNoop(),
	})
	return uc, m
}

func TestConsumeVerificationCode(t *testing.T) {
	uc, m := newTestUsecase(t)
	ctx := context.Background()

	in := ConsumeVerificationCodeInput{
		EventID:   "e1",
		UserID:    "u1",
		Email:     "ada@example.com",
		FullName:  "Ada",
		Channel:   entity.ChannelEmail,
		Code:      "123456",
		ExpiresAt: testNow.Add(10 * time.Minute),
	}
	require.NoError(t, uc.ConsumeVerificationCode(ctx, in))
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].HTMLBody, "123456")
	assert.Contains(t, m.sent[0].HTMLBody, "Ada")

	// redelivery of the same event is dropped
	require.NoError(t, uc.ConsumeVerificationCode(ctx, in))
	assert.Len(t, m.sent, 1)

	in.EventID = "e2"
	in.ForMFA = true
	require.NoError(t, uc.ConsumeVerificationCode(ctx, in))
	require.Len(t, m.sent, 2)
	assert.NotEqual(t, m.sent[0].Subject, m.sent[1].Subject)
}

func TestConsumeVerificationCode_Dropped(t *testing.T) {
	uc, m := newTestUsecase(t)
	ctx := context.Background()

	require.NoError(t, uc.ConsumeVerificationCode(ctx, ConsumeVerificationCodeInput{
		EventID: "e1", UserID: "u1", Phone: "+6281", Channel: entity.ChannelSMS, Code: "123456",
	}))
	require.NoError(t, uc.ConsumeVerificationCode(ctx, ConsumeVerificationCodeInput{
		EventID: "e2", UserID: "u1", Channel: entity.ChannelEmail, Code: "123456",
	}))
	require.NoError(t, uc.ConsumeVerificationCode(ctx, ConsumeVerificationCodeInput{UserID: "u1"}))
	assert.Empty(t, m.sent)
}

func TestConsumeVerificationCode_MailFailureRetries(t *testing.T) {
	uc, m := newTestUsecase(t)
	ctx := context.Background()
	in := ConsumeVerificationCodeInput{
		EventID: "e1", UserID: "u1", Email: "ada@example.com", Channel: entity.ChannelEmail, Code: "123456",
	}

	m.fail = errors.New("smtp down")
	require.Error(t, uc.ConsumeVerificationCode(ctx, in))

	m.fail = nil
	require.NoError(t, uc.ConsumeVerificationCode(ctx, in))
	assert.Len(t, m.sent, 1)
}

func TestConsumeVerificationLink(t *testing.T) {
	uc, m := newTestUsecase(t)

	require.NoError(t, uc.ConsumeVerificationLink(context.Background(), ConsumeVerificationLinkInput{
		EventID: "e1", UserID: "u1", ClientID: "web", Email: "ada@example.com", Token: "tok", ExpiresAt: testNow.Add(time.Hour),
	}))
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].HTMLBody, "https://app.example.com/verify-email?client_id=web&amp;token=tok")
}

func TestConsumePasswordReset(t *testing.T) {
	uc, m := newTestUsecase(t)

	require.NoError(t, uc.ConsumePasswordReset(context.Background(), ConsumePasswordResetInput{
		EventID: "e1", UserID: "u1", Email: "ada@example.com", Token: "tok", ExpiresAt: testNow.Add(time.Hour),
	}))
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].HTMLBody, "https://app.example.com/reset-password?token=tok")
}

func TestConsumeAccessCode(t *testing.T) {
	uc, m := newTestUsecase(t)
	ctx := context.Background()

	require.NoError(t, uc.ConsumeAccessCode(ctx, ConsumeAccessCodeInput{
		EventID: "e1", Code: "abc", Resource: "shortlist", ResourceID: "r1",
		RecipientName: "Grace", RecipientEmail: "grace@example.com", OwnerEmail: "owner@example.com",
	}))
	require.NoError(t, uc.ConsumeAccessCode(ctx, ConsumeAccessCodeInput{
		EventID: "e2", Share: true, Write: true, Code: "xyz", Resource: "project", ResourceID: "p1",
		RecipientEmail: "grace@example.com", RedirectURL: "https://partner.example.com/open",
	}))
	require.Len(t, m.sent, 2)

	assert.Contains(t, m.sent[0].Subject, "shortlist")
	assert.Contains(t, m.sent[0].HTMLBody, "https://app.example.com/guest?guest_code=abc&amp;resource_id=r1")
	assert.Contains(t, m.sent[1].HTMLBody, "https://partner.example.com/open?resource_id=p1&amp;share_code=xyz")
	assert.Contains(t, m.sent[1].HTMLBody, "read and write")
}

func TestAccessURL(t *testing.T) {
	assert.Equal(t, "https://a.example.com/g?guest_code=c&resource_id=r",
		accessURL("", "https://a.example.com/g", "guest_code", "c", "r"))
	assert.Equal(t, "https://a.example.com/g?guest_code=c&resource_id=r",
		accessURL("://bad", "https://a.example.com/g", "guest_code", "c", "r"))
}
