package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("render-2026")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "render-2026" {
		t.Error("HashPassword() should not return plaintext password")
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("hash is not bcrypt: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, expected %d", cost, bcrypt.DefaultCost)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	hash1, _ := HashPassword("same")
	hash2, _ := HashPassword("same")

	if hash1 == hash2 {
		t.Error("same password should produce different hashes")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, _ := HashPassword("correctpassword")

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"correct password", "correctpassword", hash, true},
		{"wrong password", "wrongpassword", hash, false},
		{"empty password", "", hash, false},
		{"case sensitive", "CorrectPassword", hash, false},
		{"invalid hash", "correctpassword", "invalid_hash", false},
		{"empty hash", "correctpassword", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.expected {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.expected)
			}
		})
	}
}
