package jwt

import (
	"testing"
	"time"

	"puppychop-api/config"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})

	token, tokenID, err := svc.GenerateAccessToken("front-desk", RoleStaff)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "front-desk" || claims.Role != RoleStaff || claims.TokenID != tokenID {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	t.Parallel()
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})
	other := NewJWTService(config.JWTConfig{Secret: "other-secret", AccessExpiry: time.Minute})
	expired := NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: -time.Minute})

	token, _, _ := other.GenerateAccessToken("front-desk", RoleStaff)
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("token signed with another secret should be rejected")
	}

	token, _, _ = expired.GenerateAccessToken("front-desk", RoleStaff)
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatalf("expired token should be rejected")
	}

	if _, _, err := NewJWTService(config.JWTConfig{}).GenerateAccessToken("x", RoleStaff); err == nil {
		t.Fatalf("missing secret should be an error")
	}
}
