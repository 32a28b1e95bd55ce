package seeders

import (
	"context"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

func init() {
	Register("admin", SeedAdmin)
}

// AdminAccount is the operator account created by SeedAdmin.
type AdminAccount struct {
	Name     string
	Email    string
	Password string
	Answer   string
}

// AdminFromEnv reads SEED_ADMIN_*.
func AdminFromEnv() AdminAccount {
	return AdminAccount{
		Name:     config.SeedAdminName(),
		Email:    config.SeedAdminEmail(),
		Password: config.SeedAdminPassword(),
		Answer:   config.SeedAdminAnswer(),
	}
}

// SeedAdmin ensures the SEED_ADMIN_EMAIL account exists with the admin role.
// It is skipped when SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD is unset.
func SeedAdmin(ctx context.Context, stores *repositories.Stores) error {
	return EnsureAdmin(ctx, stores, AdminFromEnv())
}

// EnsureAdmin registers acct unless the email is taken, then grants the
// admin role. An existing account keeps its password.
func EnsureAdmin(ctx context.Context, stores *repositories.Stores, acct AdminAccount) error {
	if acct.Email == "" || acct.Password == "" {
		logger.Info("seed: admin skipped, SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set")
		return nil
	}

	// The issuer is unused: registration never signs a token.
	accounts := services.NewAuthService(stores.Users, nil)
	_, err := accounts.Register(ctx, services.RegisterInput{
		Name:     acct.Name,
		Email:    acct.Email,
		Password: acct.Password,
		Phone:    "-",
		Address:  "-",
		Answer:   acct.Answer,
	})
	if err != nil && !apperror.Is(err, apperror.KindConflict) {
		return err
	}

	_, err = services.NewUserService(stores.Users).SetRole(ctx, acct.Email, models.RoleAdmin)
	return err
}
