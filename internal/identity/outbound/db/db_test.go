package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/pgtest"
)

func TestDB_MFAMethods(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewDB(pgtest.New(t), instrument.NewNoop())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateUser(ctx, entity.User{ID: "u1", Email: "Ada@Example.com", FullName: "Ada", Status: entity.UserStatusActive}, now))

	totp := entity.MFAMethod{
		ID: "m1", UserID: "u1", Type: entity.MFATypeTOTP, Status: entity.MFAStatusPending,
		IsDefault: true, Secret: []byte{1, 2, 3}, CreatedAt: now, UpdatedAt: now,
	}
	email := entity.MFAMethod{
		ID: "m2", UserID: "u1", Type: entity.MFATypeEmail, Status: entity.MFAStatusPending,
		CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second),
	}

	// Act & Assert
	require.NoError(t, s.CreateMFAMethod(ctx, totp))
	require.NoError(t, s.CreateMFAMethod(ctx, email))

	dup := email
	dup.ID = "m3"
	assert.ErrorIs(t, s.CreateMFAMethod(ctx, dup), goerror.ErrConflict)

	user, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, user.Roles)

	_, err = s.GetUserByID(ctx, "ghost")
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	def, err := s.GetDefaultMFAMethod(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "m1", def.ID)
	assert.Equal(t, []byte{1, 2, 3}, def.Secret)
	assert.Nil(t, def.LastVerifiedAt)

	require.NoError(t, s.UpdateMFAVerified(ctx, "m2", now.Add(time.Minute)))
	assert.ErrorIs(t, s.UpdateMFAVerified(ctx, "nope", now), goerror.ErrNotFound)

	require.NoError(t, s.SetDefaultMFAMethod(ctx, "u1", "m2"))
	def, err = s.GetDefaultMFAMethod(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "m2", def.ID)
	assert.Equal(t, entity.MFAStatusEnabled, def.Status)
	require.NotNil(t, def.LastVerifiedAt)
	assert.True(t, now.Add(time.Minute).Equal(*def.LastVerifiedAt))

	require.NoError(t, s.SetBackupCodesHash(ctx, "u1", "a,b,c"))
	swapped, err := s.ReplaceBackupCodesHash(ctx, "u1", "a,b,c", "b,c")
	require.NoError(t, err)
	assert.True(t, swapped)
	swapped, err = s.ReplaceBackupCodesHash(ctx, "u1", "a,b,c", "c")
	require.NoError(t, err)
	assert.False(t, swapped)

	methods, err := s.GetMFAMethodsByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "m1", methods[0].ID)
	for _, m := range methods {
		assert.Equal(t, "b,c", m.BackupCodesHash)
	}

	deleted, err := s.DeleteMFAMethod(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteMFAMethod(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
