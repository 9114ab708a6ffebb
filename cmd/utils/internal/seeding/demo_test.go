package seeding

import (
	"testing"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/google/uuid"
)

func TestDemo(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	creds := Credentials{
		AdminUsername: " Admin ",
		AdminPassword: "admin-password",
		KioskUsername: "Front-Desk",
		KioskPassword: "kiosk-password",
	}

	set, err := Demo(creds, now)
	if err != nil {
		t.Fatalf("Demo() error = %v", err)
	}

	ids := IDs()
	for collection, want := range ids {
		docs := set[collection]
		if len(docs) != len(want) {
			t.Fatalf("%s: got %d docs, want %d", collection, len(docs), len(want))
		}
		for i, doc := range docs {
			if doc["_id"] != want[i] {
				t.Errorf("%s[%d]: _id = %v, want %v", collection, i, doc["_id"], want[i])
			}
		}
	}

	kiosk := set["kiosks"][0]
	if kiosk["username"] != "front-desk" {
		t.Errorf("kiosk username = %v, want front-desk", kiosk["username"])
	}
	if kiosk["activity_id"] != DemoID("activity") || kiosk["room_id"] != DemoID("room") {
		t.Error("kiosk is not placed in the demo activity and room")
	}
	hash, _ := kiosk["password_hash"].(string)
	if !auth.VerifyPassword(hash, "kiosk-password") {
		t.Error("kiosk password hash does not verify")
	}

	admin := set["admins"][0]
	if admin["username"] != "admin" {
		t.Errorf("admin username = %v, want admin", admin["username"])
	}
}

func TestDemoRejectsWeakPasswords(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"admin", Credentials{AdminPassword: "short", KioskPassword: "kiosk-password"}},
		{"kiosk", Credentials{AdminPassword: "admin-password", KioskPassword: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Demo(tt.creds, time.Now()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDemoIDIsStable(t *testing.T) {
	if DemoID("room") != DemoID("room") {
		t.Error("DemoID is not deterministic")
	}
	if DemoID("room") == DemoID("activity") {
		t.Error("different names share an id")
	}
	if DemoID("room") == uuid.Nil {
		t.Error("DemoID returned nil uuid")
	}
}
