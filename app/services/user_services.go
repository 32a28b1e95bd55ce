package services

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
)

const (
	usersLatest  = 100
	usersPerPage = 100
)

// UserService is the admin view of accounts.
type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Latest(ctx context.Context) ([]models.User, error) {
	return s.users.Latest(ctx, usersLatest)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func (s *UserService) Page(ctx context.Context, page int) ([]models.User, error) {
	return s.users.Page(ctx, page, usersPerPage)
}

// Search matches keyword literally; regex metacharacters have no effect.
func (s *UserService) Search(ctx context.Context, keyword string) ([]models.User, error) {
	return s.users.Search(ctx, keyword)
}

func (s *UserService) Delete(ctx context.Context, userID string) error {
	id, err := parseID(userID, "User not found")
	if err != nil {
		return err
	}
	return notFound(s.users.Delete(ctx, id), "User not found")
}

// SetRole changes the role of the account with email. Operators reach it
// through the CLI only; no HTTP route changes roles.
func (s *UserService) SetRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperror.Validation("Invalid role", map[string]string{"role": "The role must be 0 or 1."})
	}
	u, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}
	return s.users.SetRole(ctx, u.ID, role)
}
