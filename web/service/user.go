package service

import (
	"context"
	"errors"
	"strings"

	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/database/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserService reads and writes User rows. Every lookup hits the database so
// that role changes take effect on the next request.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Profile holds the identity fields copied into a User row.
type Profile struct {
	Email    string
	Name     string
	Verified bool
	Picture  string
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(user).
		Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// IsAdmin reports whether email belongs to a stored admin. A missing user is
// not an error; it is simply not an admin.
func (s *UserService) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// EnsureUser creates the user on first login and leaves an existing row
// untouched. created is true only when a row was inserted.
func (s *UserService) EnsureUser(ctx context.Context, p Profile) (user *model.User, created bool, err error) {
	user, err = s.GetByEmail(ctx, p.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user = &model.User{
		Email:    normalizeEmail(p.Email),
		Name:     p.Name,
		Verified: p.Verified,
		Picture:  p.Picture,
		IsAdmin:  false,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(user)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent first login.
		user, err = s.GetByEmail(ctx, p.Email)
		return user, false, err
	}
	return user, true, nil
}

// UpdateProfile sets the display name and refreshes the identity-provider fields.
func (s *UserService) UpdateProfile(ctx context.Context, p Profile) (*model.User, error) {
	user, err := s.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Model(user).
		Updates(map[string]any{"name": p.Name, "verified": p.Verified, "picture": p.Picture}).
		Error
	if err != nil {
		return nil, err
	}
	user.Name = p.Name
	user.Verified = p.Verified
	user.Picture = p.Picture
	return user, nil
}

// Promote sets the admin flag on the target user and records the Admin marker.
// Promoting an admin again leaves the same end state.
func (s *UserService) Promote(ctx context.Context, email string) (*model.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("is_admin", true).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
			Create(&model.Admin{Email: user.Email}).
			Error
	})
	if err != nil {
		return nil, err
	}
	user.IsAdmin = true
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
