package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/steams-social/steams-api/config"
	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Store{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })
	return database.GetDB()
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	db := setup(t)
	users := NewUserService(db)
	ctx := context.Background()

	user, created, err := users.EnsureUser(ctx, Profile{Email: "Ana@Example.com", Verified: true, Picture: "p.png"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.False(t, user.IsAdmin)

	again, created, err := users.EnsureUser(ctx, Profile{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.Id, again.Id)
	assert.Equal(t, "p.png", again.Picture)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetByEmailNotFound(t *testing.T) {
	users := NewUserService(setup(t))
	_, err := users.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	isAdmin, err := users.IsAdmin(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestUpdateProfile(t *testing.T) {
	users := NewUserService(setup(t))
	ctx := context.Background()

	_, err := users.UpdateProfile(ctx, Profile{Email: "bo@example.com", Name: "Bo"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = users.EnsureUser(ctx, Profile{Email: "bo@example.com"})
	require.NoError(t, err)
	updated, err := users.UpdateProfile(ctx, Profile{Email: "bo@example.com", Name: "Bo", Verified: true})
	require.NoError(t, err)
	assert.Equal(t, "Bo", updated.Name)

	stored, err := users.GetByEmail(ctx, "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bo", stored.Name)
	assert.True(t, stored.Verified)
}

func TestPromoteTwiceKeepsOneAdminMarker(t *testing.T) {
	db := setup(t)
	users := NewUserService(db)
	ctx := context.Background()

	_, err := users.Promote(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = users.EnsureUser(ctx, Profile{Email: "cy@example.com"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		user, err := users.Promote(ctx, "cy@example.com")
		require.NoError(t, err)
		assert.True(t, user.IsAdmin)
	}

	isAdmin, err := users.IsAdmin(ctx, "cy@example.com")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	var markers int64
	require.NoError(t, db.Model(&model.Admin{}).Count(&markers).Error)
	assert.EqualValues(t, 1, markers)
}

func TestComplaintLifecycle(t *testing.T) {
	db := setup(t)
	users := NewUserService(db)
	complaints := NewComplaintService(db)
	ctx := context.Background()

	owner, _, err := users.EnsureUser(ctx, Profile{Email: "dee@example.com"})
	require.NoError(t, err)
	admin, _, err := users.EnsureUser(ctx, Profile{Email: "admin@example.com"})
	require.NoError(t, err)

	_, err = complaints.Create(ctx, owner, "   ")
	assert.ErrorIs(t, err, ErrEmptyIssue)

	created, err := complaints.Create(ctx, owner, "Broken streetlight")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotViewed, created.Status)

	_, err = complaints.AppendAction(ctx, created.ComplaintUID, admin, "DONE", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = complaints.AppendAction(ctx, created.ComplaintUID+100, admin, model.StatusViewed, "")
	assert.ErrorIs(t, err, ErrComplaintNotFound)

	_, err = complaints.AppendAction(ctx, created.ComplaintUID, admin, model.StatusViewed, "seen")
	require.NoError(t, err)
	_, err = complaints.AppendAction(ctx, created.ComplaintUID, admin, model.StatusResolved, "fixed")
	require.NoError(t, err)

	mine, err := complaints.ListByOwner(ctx, owner.Email)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusResolved, mine[0].Status)
	require.Len(t, mine[0].History, 2)
	assert.Equal(t, "seen", mine[0].History[0].Response)
	assert.Equal(t, admin.Id, mine[0].History[1].AdminId)

	all, err := complaints.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, owner.Email, all[0].User.Email)

	none, err := complaints.ListByOwner(ctx, admin.Email)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateComplaintNeedsStoredOwner(t *testing.T) {
	db := setup(t)
	complaints := NewComplaintService(db)

	_, err := complaints.Create(context.Background(), &model.User{Email: "ghost@example.com"}, "Pothole")
	assert.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Complaint{}).Count(&count).Error)
	assert.Zero(t, count)
}
