package catalog

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
)

// BootstrapAdmin creates the first admin account when no admin with that
// username exists yet. It returns whether an account was created.
func BootstrapAdmin(ctx context.Context, admins *entity.Store[Admin], username, password string, logger core.Logger) (bool, error) {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	username = auth.NormalizeUsername(username)
	if username == "" || password == "" {
		return false, nil
	}

	existing, err := admins.FindOne(ctx, entity.Fields{"username": username})
	if err != nil {
		return false, fmt.Errorf("cannot look up admin %s: %w", username, err)
	}
	if existing != nil {
		logger.Debug("bootstrap admin already present", "username", username)
		return false, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin password: %w", err)
	}

	a := &Admin{Username: username, Name: username, PasswordHash: hash}
	a.BeforeCreate()
	if err := admins.Create(ctx, a); err != nil {
		return false, fmt.Errorf("cannot create bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin created", "username", username, "id", a.ID.String())
	return true, nil
}
