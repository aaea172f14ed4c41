package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"furnistore/internal/auth"
	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const (
	maxDisplayNameLength = 100
	maxPhoneLength       = 32
)

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// UserService manages customer and admin profiles.
type UserService interface {
	// Me returns the caller's profile, creating it from token claims on first access.
	Me(ctx context.Context, p *auth.Principal) (*model.User, error)
	// UpdateMe changes display name and phone.
	UpdateMe(ctx context.Context, p *auth.Principal, in ProfileInput) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users, now: time.Now}
}

func (s *userService) Me(ctx context.Context, p *auth.Principal) (*model.User, error) {
	if p == nil || p.UserID == "" {
		return nil, ErrOwnerRequired
	}
	u, err := s.users.FindByID(ctx, p.UserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := s.now().UTC()
	return s.users.Create(ctx, &model.User{
		ID:          p.UserID,
		Email:       p.Email,
		DisplayName: defaultDisplayName(p.Email),
		Role:        p.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *userService) UpdateMe(ctx context.Context, p *auth.Principal, in ProfileInput) (*model.User, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.DisplayName == "" {
		return nil, fmt.Errorf("%w: display_name is required", ErrValidation)
	}
	if utf8.RuneCountInString(in.DisplayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display_name exceeds %d characters", ErrValidation, maxDisplayNameLength)
	}
	if len(in.Phone) > maxPhoneLength {
		return nil, fmt.Errorf("%w: phone exceeds %d characters", ErrValidation, maxPhoneLength)
	}

	u, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}
	u.DisplayName = in.DisplayName
	u.Phone = in.Phone
	u.UpdatedAt = s.now().UTC()
	out, err := s.users.Update(ctx, u)
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

// defaultDisplayName uses the local part of the email address.
func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Customer"
	}
	return local
}
