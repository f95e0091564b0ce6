package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	token, err := manager.GenerateToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("unexpected user id: %q", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("unexpected username: %q", claims.Username)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("unexpected email: %q", claims.Email)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret-a", time.Hour, 24*time.Hour)
	other := NewJWTManager("secret-b", time.Hour, 24*time.Hour)

	token, err := manager.GenerateToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret must not validate")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := manager.ValidateToken(token); err == nil {
			t.Errorf("expected error for %q", token)
		}
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := manager.GenerateToken("user-1", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expired token must not validate")
	}
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	token, err := manager.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("unexpected user id: %q", claims.UserID)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cure-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cure-pass" {
		t.Fatal("password must not be stored in plain text")
	}

	if !CheckPasswordHash("s3cure-pass", hash) {
		t.Error("correct password must verify")
	}
	if CheckPasswordHash("wrong-pass", hash) {
		t.Error("wrong password must not verify")
	}
}
