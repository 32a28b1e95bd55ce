package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

// TokenIssuer is satisfied by *auth.TokenService.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AuthService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
}

func NewAuthService(users repositories.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"required"`
	Address  string `json:"address"  validate:"required"`
	Answer   string `json:"answer"   validate:"required"`
}

// Register creates a standard account. The password and the security
// answer are stored as bcrypt hashes.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("Already Registered Please Login")
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	answer, err := auth.HashAnswer(in.Answer)
	if err != nil {
		return nil, fmt.Errorf("auth: hash answer: %w", err)
	}

	u := &models.User{
		Name:     in.Name,
		Email:    email,
		Password: hash,
		Phone:    in.Phone,
		Address:  in.Address,
		Answer:   answer,
		Role:     models.RoleStandard,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Conflict("Already Registered Please Login")
		}
		return nil, err
	}
	return u, nil
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// dummyHash is compared against when the email is unknown, so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = auth.HashPassword("storefront-timing-equaliser")

// Login checks credentials and issues an identity token. Unknown email and
// wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	invalid := apperror.Unauthorized("Invalid email or password")

	u, err := s.users.FindByEmail(ctx, models.NormalizeEmail(in.Email))
	if errors.Is(err, repositories.ErrNotFound) {
		auth.CheckPassword(dummyHash, in.Password)
		return nil, "", invalid
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, "", invalid
	}

	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("auth: issue token: %w", err)
	}
	return u, token, nil
}

type ForgotPasswordInput struct {
	Email       string `json:"email"       validate:"required,email"`
	Answer      string `json:"answer"      validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ForgotPassword resets the password when the security answer matches.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	wrong := apperror.NotFound("Incorrect Email or Answer")

	u, err := s.users.FindByEmail(ctx, models.NormalizeEmail(in.Email))
	if errors.Is(err, repositories.ErrNotFound) {
		auth.CheckPassword(dummyHash, in.Answer)
		return wrong
	}
	if err != nil {
		return err
	}
	if !auth.CheckAnswer(u.Answer, in.Answer) {
		return wrong
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	_, err = s.users.UpdateProfile(ctx, u.ID, repositories.UserUpdate{Password: &hash})
	return notFound(err, "Incorrect Email or Answer")
}

// ProfileInput is a partial update; empty fields keep their value. The role
// is not editable here.
type ProfileInput struct {
	Name     string `json:"name"     validate:"nullable,max=100"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password" validate:"nullable,min=6"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	id, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}

	var upd repositories.UserUpdate
	if in.Name != "" {
		upd.Name = &in.Name
	}
	if in.Phone != "" {
		upd.Phone = &in.Phone
	}
	if in.Address != "" {
		upd.Address = &in.Address
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password: %w", err)
		}
		upd.Password = &hash
	}

	u, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// Me returns the signed-in account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	id, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// IsAdmin implements rbac.RoleChecker. A subject that names no account is
// simply not an admin.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}
