package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
)

func createTOTP(t *testing.T, h *harness) *MFAMethodInfo {
	t.Helper()
	info, err := h.uc.CreateMFAMethod(context.Background(), CreateMFAMethodInput{UserID: "u1", Type: "TOTP"})
	require.NoError(t, err)
	return info
}

func totpCode(t *testing.T, h *harness, secret string) string {
	t.Helper()
	code, err := h.totp.GenerateCode(secret, h.clock.Now())
	require.NoError(t, err)
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestCreateMFAMethod_TOTP(t *testing.T) {
	// Arrange
	h := newHarness(t)

	// Act
	info := createTOTP(t, h)

	// Assert
	assert.Equal(t, entity.MFATypeTOTP, info.Type)
	assert.Equal(t, entity.MFAStatusPending, info.Status)
	assert.True(t, info.IsDefault)
	assert.NotEmpty(t, info.Secret)
	assert.Contains(t, info.URI, "otpauth://totp/")

	stored, ok := h.db.method(info.ID)
	require.True(t, ok)
	assert.NotContains(t, string(stored.Secret), info.Secret)

	got, err := h.uc.GetMFAMethod(context.Background(), GetMFAMethodInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, info.Secret, got.Secret)

	_, err = h.uc.CreateMFAMethod(context.Background(), CreateMFAMethodInput{UserID: "u1", Type: "totp"})
	assertCode(t, err, goerror.CodeConflict)
}

func TestCreateMFAMethod_EmailSendsFirstCode(t *testing.T) {
	h := newHarness(t)
	createTOTP(t, h)

	info, err := h.uc.CreateMFAMethod(context.Background(), CreateMFAMethodInput{UserID: "u1", Type: "EMAIL"})
	require.NoError(t, err)

	assert.False(t, info.IsDefault)
	assert.Empty(t, info.Secret)
	ev := h.mq.lastCode()
	assert.True(t, ev.ForMFA)
	assert.Equal(t, entity.MFATypeEmail, ev.Channel)

	verified, err := h.uc.VerifyMFA(context.Background(), VerifyMFAInput{UserID: "u1", MethodID: info.ID, Code: ev.Code})
	require.NoError(t, err)
	assert.Equal(t, entity.MFAStatusEnabled, verified.Status)
}

func TestCreateMFAMethod_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "u1", Type: "PUSH"})
	assertCode(t, err, goerror.CodeInvalidInput)

	_, err = h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "ghost", Type: "TOTP"})
	assertCode(t, err, goerror.CodeNotFound)
}

func TestVerifyMFA_TOTPEnablesMethod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	info := createTOTP(t, h)

	out, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: totpCode(t, h, info.Secret)})
	require.NoError(t, err)

	assert.Equal(t, entity.MFAStatusEnabled, out.Status)
	require.NotNil(t, out.LastVerifiedAt)
	assert.Equal(t, testNow, *out.LastVerifiedAt)

	stored, _ := h.db.method(info.ID)
	assert.Equal(t, entity.MFAStatusEnabled, stored.Status)

	// the secret is no longer disclosed once enabled
	got, err := h.uc.GetMFAMethod(ctx, GetMFAMethodInput{UserID: "u1", MethodID: info.ID})
	require.NoError(t, err)
	assert.Empty(t, got.Secret)
}

func TestVerifyMFA_LocksAfterFiveFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	info := createTOTP(t, h)
	code := totpCode(t, h, info.Secret)

	for i := 1; i <= entity.MaxAttempts; i++ {
		_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: wrongCode(code)})
		assertInvalidCredential(t, err)
	}

	// the correct code is refused while locked
	_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: code})
	assertCode(t, err, goerror.CodeLocked)
	assert.True(t, errors.Is(err, entity.ErrLocked))

	got, err := h.uc.GetMFAMethod(ctx, GetMFAMethodInput{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.EqualValues(t, entity.MaxAttempts, got.Attempts)

	// admin unlock
	err = h.uc.ResetMFAAttempts(authCtx("u1"), ResetMFAAttemptsInput{MethodID: info.ID})
	assertCode(t, err, goerror.CodeForbidden)

	_, err = h.enf.AddPolicy("admin", "mfa_attempts", "reset")
	require.NoError(t, err)
	require.NoError(t, h.uc.ResetMFAAttempts(authCtx("ops-1", "admin"), ResetMFAAttemptsInput{MethodID: info.ID}))

	_, err = h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: code})
	assert.NoError(t, err)
}

func TestVerifyMFA_ConcurrentGuessesStopAtLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	info := createTOTP(t, h)
	bad := wrongCode(totpCode(t, h, info.Secret))

	for range entity.MaxAttempts - 1 {
		_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: bad})
		assertInvalidCredential(t, err)
	}

	var (
		wg        sync.WaitGroup
		evaluated atomic.Int64
		locked    atomic.Int64
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: bad})
			switch {
			case errors.Is(err, entity.ErrInvalidOrExpiredCredential):
				evaluated.Add(1)
			case errors.Is(err, entity.ErrLocked):
				locked.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, evaluated.Load())
	assert.EqualValues(t, 49, locked.Load())

	got, err := h.uc.GetMFAMethod(ctx, GetMFAMethodInput{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.EqualValues(t, entity.MaxAttempts, got.Attempts)
}

func TestVerifyMFA_SuccessClearsAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	info := createTOTP(t, h)
	code := totpCode(t, h, info.Secret)

	for range entity.MaxAttempts - 1 {
		_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: wrongCode(code)})
		assertInvalidCredential(t, err)
	}

	out, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: code})
	require.NoError(t, err)
	assert.Zero(t, out.Attempts)
	assert.False(t, h.mr.Exists(attemptsKey(info.ID)))
}

func TestVerifyMFA_AttemptWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	info := createTOTP(t, h)

	_, err := h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: wrongCode(totpCode(t, h, info.Secret))})
	assertInvalidCredential(t, err)

	// no window configured, so the counter never expires
	assert.Zero(t, h.mr.TTL(attemptsKey(info.ID)))
}

func TestVerifyMFA_OtherUsersMethod(t *testing.T) {
	h := newHarness(t)
	info := createTOTP(t, h)
	h.db.addUser(entity.User{ID: "u2", Email: "bob@example.com"})

	_, err := h.uc.VerifyMFA(context.Background(), VerifyMFAInput{UserID: "u2", MethodID: info.ID, Code: "123456"})
	assertCode(t, err, goerror.CodeNotFound)
}

func enableTOTP(t *testing.T, h *harness) *MFAMethodInfo {
	t.Helper()
	info := createTOTP(t, h)
	_, err := h.uc.VerifyMFA(context.Background(), VerifyMFAInput{UserID: "u1", Code: totpCode(t, h, info.Secret)})
	require.NoError(t, err)
	return info
}

func TestSetDefaultMFA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	totp := enableTOTP(t, h)

	sms, err := h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "u1", Type: "SMS"})
	require.NoError(t, err)

	err = h.uc.SetDefaultMFA(ctx, SetDefaultMFAInput{UserID: "u1", MethodID: sms.ID})
	assertCode(t, err, goerror.CodeConflict)

	_, err = h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", MethodID: sms.ID, Code: h.mq.lastCode().Code})
	require.NoError(t, err)
	require.NoError(t, h.uc.SetDefaultMFA(ctx, SetDefaultMFAInput{UserID: "u1", MethodID: sms.ID}))

	got, _ := h.db.method(sms.ID)
	assert.True(t, got.IsDefault)
	got, _ = h.db.method(totp.ID)
	assert.False(t, got.IsDefault)
}

func TestDeleteMFAMethod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	totp := enableTOTP(t, h)

	err := h.uc.DeleteMFAMethod(ctx, DeleteMFAMethodInput{UserID: "u1", MethodID: totp.ID})
	assertCode(t, err, goerror.CodeConflict)

	email, err := h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "u1", Type: "EMAIL"})
	require.NoError(t, err)
	_, err = h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", MethodID: email.ID, Code: h.mq.lastCode().Code})
	require.NoError(t, err)

	require.NoError(t, h.uc.DeleteMFAMethod(ctx, DeleteMFAMethodInput{UserID: "u1", MethodID: totp.ID}))

	_, ok := h.db.method(totp.ID)
	assert.False(t, ok)
	got, _ := h.db.method(email.ID)
	assert.True(t, got.IsDefault)

	err = h.uc.DeleteMFAMethod(ctx, DeleteMFAMethodInput{UserID: "u1", MethodID: totp.ID})
	assertCode(t, err, goerror.CodeNotFound)
}

func TestDeleteMFAMethod_PendingIsAlwaysRemovable(t *testing.T) {
	h := newHarness(t)
	info := createTOTP(t, h)

	require.NoError(t, h.uc.DeleteMFAMethod(context.Background(), DeleteMFAMethodInput{UserID: "u1", MethodID: info.ID}))
}

func TestBackupCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.uc.GenerateBackupCodes(ctx, GenerateBackupCodesInput{UserID: "u1"})
	assertCode(t, err, goerror.CodeConflict)

	enableTOTP(t, h)
	codes, err := h.uc.GenerateBackupCodes(ctx, GenerateBackupCodesInput{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, codes, mfa.BackupCodeCount)

	out, err := h.uc.VerifyBackupCode(ctx, VerifyBackupCodeInput{UserID: "u1", Code: codes[0]})
	require.NoError(t, err)
	assert.Equal(t, mfa.BackupCodeCount-1, out.Remaining)

	_, err = h.uc.VerifyBackupCode(ctx, VerifyBackupCodeInput{UserID: "u1", Code: codes[0]})
	assertInvalidCredential(t, err)

	_, err = h.uc.VerifyBackupCode(ctx, VerifyBackupCodeInput{UserID: "u1", Code: "12ab"})
	assertCode(t, err, goerror.CodeInvalidInput)

	// new methods inherit the remaining codes
	sms, err := h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "u1", Type: "SMS"})
	require.NoError(t, err)
	assert.Equal(t, mfa.BackupCodeCount-1, sms.BackupCodesRemaining)

	// regeneration invalidates the old set
	_, err = h.uc.GenerateBackupCodes(ctx, GenerateBackupCodesInput{UserID: "u1"})
	require.NoError(t, err)
	_, err = h.uc.VerifyBackupCode(ctx, VerifyBackupCodeInput{UserID: "u1", Code: codes[1]})
	assertInvalidCredential(t, err)
}

func TestSendMFACode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.uc.SendMFACode(ctx, SendMFACodeInput{UserID: "u1"})
	assertCode(t, err, goerror.CodeNotFound)

	totp := createTOTP(t, h)
	_, err = h.uc.SendMFACode(ctx, SendMFACodeInput{UserID: "u1"})
	assertCode(t, err, goerror.CodeConflict)

	_, err = h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", Code: totpCode(t, h, totp.Secret)})
	require.NoError(t, err)

	out, err := h.uc.SendMFACode(ctx, SendMFACodeInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, totp.URI, out.URI)
	assert.Nil(t, out.ExpiresAt)

	email, err := h.uc.CreateMFAMethod(ctx, CreateMFAMethodInput{UserID: "u1", Type: "EMAIL"})
	require.NoError(t, err)
	_, err = h.uc.VerifyMFA(ctx, VerifyMFAInput{UserID: "u1", MethodID: email.ID, Code: h.mq.lastCode().Code})
	require.NoError(t, err)

	out, err = h.uc.SendMFACode(ctx, SendMFACodeInput{UserID: "u1", MethodID: email.ID})
	require.NoError(t, err)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, testNow.Add(5*time.Minute), *out.ExpiresAt)
	assert.True(t, h.mq.lastCode().ForMFA)
}
