package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
)

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	stores := NewMemoryStores()

	created, err := BootstrapAdmin(ctx, stores.Admins, " Root ", "root-password", nil)
	if err != nil || !created {
		t.Fatalf("BootstrapAdmin() = %v, %v", created, err)
	}

	a, err := stores.Admins.FindOne(ctx, entity.Fields{"username": "root"})
	if err != nil || a == nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if !auth.VerifyPassword(a.PasswordHash, "root-password") {
		t.Error("stored hash does not verify")
	}

	created, err = BootstrapAdmin(ctx, stores.Admins, "root", "other-password", nil)
	if err != nil || created {
		t.Errorf("second BootstrapAdmin() = %v, %v, want no-op", created, err)
	}
	admins, _ := stores.Admins.List(ctx, nil)
	if len(admins) != 1 {
		t.Errorf("got %d admins, want 1", len(admins))
	}
}

func TestBootstrapAdminSkipsAndRejects(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "no username", username: " ", password: "root-password"},
		{name: "no password", username: "root"},
		{name: "weak password", username: "root", password: "short", wantErr: auth.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := NewMemoryStores()
			created, err := BootstrapAdmin(context.Background(), stores.Admins, tt.username, tt.password, nil)
			if created {
				t.Error("created an admin")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
