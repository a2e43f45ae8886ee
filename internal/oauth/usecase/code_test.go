package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

func TestGuestCode_Scenario(t *testing.T) {
	// Arrange
	h := newHarness(t)
	ctx := ownerCtx()

	// Act
	out, err := h.uc.GenerateGuestCode(ctx, GenerateGuestCodeInput{
		Resource:    "shortlist",
		ResourceID:  "r1",
		GuestName:   "Grace",
		GuestEmail:  "Grace@Example.com",
		ExpiryHours: 24,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "r1", out.ResourceID)
	assert.Equal(t, 24, out.ExpiryHours)
	assert.Equal(t, testNow.Add(24*time.Hour), out.ExpiresAt)
	assert.Equal(t, 24*time.Hour, h.mr.TTL("guest_code:"+out.Code))

	for range 3 {
		res, err := h.uc.ValidateGuestCode(ctx, ValidateCodeInput{Code: out.Code, ResourceID: "r1"})
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, "shortlist", res.Resource)
		assert.False(t, res.Write)
		assert.Equal(t, "grace@example.com", res.GuestEmail)
	}

	res, err := h.uc.ValidateGuestCode(ctx, ValidateCodeInput{Code: out.Code, ResourceID: "r2"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Resource ID mismatch", res.Error)

	dc, err := h.uc.guestCodes.validate(context.Background(), out.Code, "r2")
	assert.Nil(t, dc)
	assert.True(t, errors.Is(err, entity.ErrResourceMismatch))

	require.Len(t, h.mq.events, 1)
	ev := h.mq.events[0]
	assert.Equal(t, "guest", ev.Kind)
	assert.Equal(t, out.Code, ev.Code)
	assert.Equal(t, "owner@example.com", ev.OwnerEmail)
	assert.Equal(t, "grace@example.com", ev.RecipientEmail)
}

func TestGuestCode_ExpiresByClock(t *testing.T) {
	h := newHarness(t)
	ctx := ownerCtx()

	out, err := h.uc.GenerateGuestCode(ctx, GenerateGuestCodeInput{Resource: "shortlist", ResourceID: "r1", GuestEmail: "g@example.com", ExpiryHours: 1})
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	res, err := h.uc.ValidateGuestCode(ctx, ValidateCodeInput{Code: out.Code, ResourceID: "r1"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Invalid or expired code", res.Error)
}

func TestGuestCode_DefaultExpiryAndRevoke(t *testing.T) {
	h := newHarness(t)
	ctx := ownerCtx()

	out, err := h.uc.GenerateGuestCode(ctx, GenerateGuestCodeInput{Resource: "shortlist", ResourceID: "r1", GuestEmail: "g@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 24, out.ExpiryHours)

	require.NoError(t, h.uc.RevokeGuestCode(ctx, RevokeCodeInput{Code: out.Code}))
	require.NoError(t, h.uc.RevokeGuestCode(ctx, RevokeCodeInput{Code: out.Code}))

	res, err := h.uc.ValidateGuestCode(ctx, ValidateCodeInput{Code: out.Code, ResourceID: "r1"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestGuestCode_Rejections(t *testing.T) {
	h := newHarness(t)
	in := GenerateGuestCodeInput{Resource: "shortlist", ResourceID: "r1", GuestEmail: "g@example.com"}

	_, err := h.uc.GenerateGuestCode(context.Background(), in)
	assertCode(t, err, goerror.CodeUnauthorized)

	_, err = h.uc.GenerateGuestCode(plainCtx(), in)
	assertCode(t, err, goerror.CodeForbidden)

	_, err = h.uc.GenerateGuestCode(ownerCtx(), GenerateGuestCodeInput{Resource: "shortlist", ResourceID: "r1", GuestEmail: "nope"})
	assertCode(t, err, goerror.CodeInvalidInput)

	_, err = h.uc.ValidateGuestCode(ownerCtx(), ValidateCodeInput{Code: "c"})
	assertCode(t, err, goerror.CodeInvalidInput)
}

func TestGuestCode_PublishFailureKeepsCode(t *testing.T) {
	h := newHarness(t)
	h.mq.fail = errors.New("broker down")
	ctx := ownerCtx()

	out, err := h.uc.GenerateGuestCode(ctx, GenerateGuestCodeInput{Resource: "shortlist", ResourceID: "r1", GuestEmail: "g@example.com"})
	require.NoError(t, err)

	res, err := h.uc.ValidateGuestCode(ctx, ValidateCodeInput{Code: out.Code, ResourceID: "r1"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestShareCode_CreatesGuestUserOnce(t *testing.T) {
	h := newHarness(t)
	ctx := ownerCtx()
	in := GenerateShareCodeInput{
		Resource:    "project",
		ResourceID:  "p1",
		Write:       true,
		GuestName:   "Grace Hopper",
		GuestEmail:  "grace@example.com",
		Roles:       []string{"viewer"},
		WorkspaceID: "w1",
	}

	first, err := h.uc.GenerateShareCode(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, first.UserID)

	guest, err := h.db.GetUserByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", guest.Email)
	assert.Equal(t, []string{"viewer"}, guest.Roles)

	second, err := h.uc.GenerateShareCode(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEqual(t, first.Code, second.Code)

	res, err := h.uc.ValidateShareCode(ctx, ValidateCodeInput{Code: first.Code})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, first.UserID, res.UserID)
	assert.Equal(t, "w1", res.WorkspaceID)
	assert.True(t, res.Write)

	res, err = h.uc.ValidateShareCode(ctx, ValidateCodeInput{Code: first.Code, ResourceID: "p2"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestShareCode_ExistingUserAndRevoke(t *testing.T) {
	h := newHarness(t)
	ctx := ownerCtx()

	out, err := h.uc.GenerateShareCode(ctx, GenerateShareCodeInput{
		Resource: "project", ResourceID: "p1", GuestName: "Ada", GuestEmail: "ADA@example.com", Roles: []string{"viewer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", out.UserID)

	require.NoError(t, h.uc.RevokeShareCode(ctx, RevokeCodeInput{Code: out.Code}))
	res, err := h.uc.ValidateShareCode(ctx, ValidateCodeInput{Code: out.Code})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = h.uc.GenerateShareCode(ctx, GenerateShareCodeInput{Resource: "project", ResourceID: "p1", GuestName: "Ada", GuestEmail: "ada@example.com"})
	assertCode(t, err, goerror.CodeInvalidInput)
}
