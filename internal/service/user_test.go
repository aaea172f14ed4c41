package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"furnistore/internal/auth"
	"furnistore/internal/model"
	repoMocks "furnistore/internal/repository/mocks"
)

func TestUserService_Me(t *testing.T) {
	ctx := context.Background()
	p := &auth.Principal{UserID: "u1", Email: "ada@example.com", Role: model.RoleCustomer}

	t.Run("existing profile", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByID", ctx, "u1").Return(&model.User{ID: "u1", DisplayName: "Ada"}, nil)

		u, err := NewUserService(mRepo).Me(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Ada", u.DisplayName)
		mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("created on first access", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByID", ctx, "u1").Return(nil, sql.ErrNoRows)
		mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.ID == "u1" && u.Email == "ada@example.com" && u.DisplayName == "ada" && u.Role == model.RoleCustomer
		})).Return(&model.User{ID: "u1", DisplayName: "ada"}, nil)

		u, err := NewUserService(mRepo).Me(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "ada", u.DisplayName)
		mRepo.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := NewUserService(new(repoMocks.MockUserRepository)).Me(ctx, nil)
		assert.ErrorIs(t, err, ErrOwnerRequired)
	})
}

func TestUserService_UpdateMe(t *testing.T) {
	ctx := context.Background()
	p := &auth.Principal{UserID: "u1", Role: model.RoleCustomer}

	tests := []struct {
		name       string
		in         ProfileInput
		setupMocks func(mRepo *repoMocks.MockUserRepository)
		wantErr    error
	}{
		{
			name: "trims and saves",
			in:   ProfileInput{DisplayName: "  Ada L. ", Phone: " +44 20 7946 0000 "},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByID", ctx, "u1").Return(&model.User{ID: "u1", DisplayName: "ada"}, nil)
				mRepo.On("Update", ctx, mock.MatchedBy(func(u *model.User) bool {
					return u.DisplayName == "Ada L." && u.Phone == "+44 20 7946 0000" && !u.UpdatedAt.IsZero()
				})).Return(&model.User{ID: "u1", DisplayName: "Ada L."}, nil)
			},
		},
		{name: "blank name", in: ProfileInput{DisplayName: "   "}, wantErr: ErrValidation},
		{name: "name too long", in: ProfileInput{DisplayName: strings.Repeat("a", 101)}, wantErr: ErrValidation},
		{name: "phone too long", in: ProfileInput{DisplayName: "Ada", Phone: strings.Repeat("1", 33)}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUserRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(mRepo)
			}

			u, err := NewUserService(mRepo).UpdateMe(ctx, p, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ada L.", u.DisplayName)
			mRepo.AssertExpectations(t)
		})
	}
}
