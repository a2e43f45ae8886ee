package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
	"github.com/shandysiswandi/credbite/internal/notification/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

type fakeMsg struct {
	body    []byte
	headers []messaging.Header
}

func (m fakeMsg) Body() []byte                { return m.body }
func (fakeMsg) Key() []byte                   { return nil }
func (m fakeMsg) Headers() []messaging.Header { return m.headers }
func (fakeMsg) Header(string) string          { return "" }
func (fakeMsg) ID() string                    { return "m1" }
func (fakeMsg) Topic() string                 { return "t" }
func (fakeMsg) Timestamp() time.Time          { return time.Time{} }
func (fakeMsg) Ack(context.Context) error     { return nil }
func (fakeMsg) Nack(context.Context) error    { return nil }

type fakeUUID struct{}

func (fakeUUID) Generate() string { return "generated-cid" }

type fakeUC struct {
	code   usecase.ConsumeVerificationCodeInput
	link   usecase.ConsumeVerificationLinkInput
	reset  usecase.ConsumePasswordResetInput
	access usecase.ConsumeAccessCodeInput
	cID    string
	calls  int
	err    error
}

func (f *fakeUC) ConsumeVerificationCode(ctx context.Context, in usecase.ConsumeVerificationCodeInput) error {
	f.calls++
	f.code = in
	f.cID = instrument.GetCorrelationID(ctx)
	return f.err
}

func (f *fakeUC) ConsumeVerificationLink(_ context.Context, in usecase.ConsumeVerificationLinkInput) error {
	f.calls++
	f.link = in
	return f.err
}

func (f *fakeUC) ConsumePasswordReset(_ context.Context, in usecase.ConsumePasswordResetInput) error {
	f.calls++
	f.reset = in
	return f.err
}

func (f *fakeUC) ConsumeAccessCode(_ context.Context, in usecase.ConsumeAccessCodeInput) error {
	f.calls++
	f.access = in
	return f.err
}

func newHandler() (*MQHandler, *fakeUC) {
	f := &fakeUC{}
	return &MQHandler{uc: f, uuid: fakeUUID{}, ins: instrument.NewNoop()}, f
}

func TestVerificationCodeNotification(t *testing.T) {
	h, f := newHandler()
	body := []byte(`{"event_id":"e1","user_id":"u1","email":"ada@example.com","channel":"email","purpose":"mfa","code":"123456"}`)

	err := h.VerificationCodeNotification(context.Background(), fakeMsg{
		body:    body,
		headers: []messaging.Header{{Key: "cID", Value: []byte("cid-1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "e1", f.code.EventID)
	assert.Equal(t, entity.ChannelEmail, f.code.Channel)
	assert.True(t, f.code.ForMFA)
	assert.Equal(t, "cid-1", f.cID)

	require.NoError(t, h.VerificationCodeNotification(context.Background(), fakeMsg{body: body}))
	assert.Equal(t, "generated-cid", f.cID)
}

func TestHandlers_MalformedBodyIsAcked(t *testing.T) {
	h, f := newHandler()
	bad := fakeMsg{body: []byte("{")}

	assert.NoError(t, h.VerificationCodeNotification(context.Background(), bad))
	assert.NoError(t, h.VerificationLinkNotification(context.Background(), bad))
	assert.NoError(t, h.PasswordResetNotification(context.Background(), bad))
	assert.NoError(t, h.AccessCodeNotification(context.Background(), bad))
	assert.Zero(t, f.calls)
}

func TestHandlers_UsecaseErrorIsReturned(t *testing.T) {
	h, f := newHandler()
	f.err = errors.New("smtp down")

	err := h.PasswordResetNotification(context.Background(), fakeMsg{body: []byte(`{"event_id":"e1","token":"tok"}`)})
	require.Error(t, err)
	assert.Equal(t, "tok", f.reset.Token)
}

func TestLinkAndAccessNotification(t *testing.T) {
	h, f := newHandler()

	require.NoError(t, h.VerificationLinkNotification(context.Background(), fakeMsg{
		body: []byte(`{"event_id":"e1","client_id":"web","token":"tok"}`),
	}))
	assert.Equal(t, "web", f.link.ClientID)

	require.NoError(t, h.AccessCodeNotification(context.Background(), fakeMsg{
		body: []byte(`{"event_id":"e2","kind":"share","code":"c","resource_id":"p1","write":true}`),
	}))
	assert.True(t, f.access.Share)
	assert.True(t, f.access.Write)
	assert.Equal(t, "p1", f.access.ResourceID)
}

func TestConsumers(t *testing.T) {
	h, _ := newHandler()
	topics := map[string]bool{}
	for _, c := range consumers(h) {
		topics[c.topic] = true
		assert.NotNil(t, c.handler)
	}
	assert.Equal(t, map[string]bool{
		event.VerificationCodeIssuedDestination: true,
		event.VerificationLinkIssuedDestination: true,
		event.PasswordResetRequestedDestination: true,
		event.AccessCodeIssuedDestination:       true,
	}, topics)
}
