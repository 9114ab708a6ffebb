package auth

import (
	"errors"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the password")
	}

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"match", hash, "correct horse", true},
		{"mismatch", hash, "battery staple", false},
		{"empty hash", "", "correct horse", false},
		{"garbage hash", "not-bcrypt", "correct horse", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.hash, tt.password); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("error = %v, want ErrWeakPassword", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Ana.B "); got != "ana.b" {
		t.Errorf("NormalizeUsername() = %q", got)
	}
}
