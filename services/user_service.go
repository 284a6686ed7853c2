package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"gorm.io/gorm"
)

// ProfileUpdate carries the profile fields to change; nil means keep
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// UserService handles accounts for instructors and admins
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates a student account
func (s *UserService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         model.RoleStudent,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks credentials; unknown email and wrong password look the same
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

// Get loads a user by id
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := first(ctx, s.db, &user, id, ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes name and/or password. A password change bumps the
// token version so sessions issued before it stop working.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		user.TokenVersion++
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
