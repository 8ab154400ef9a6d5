package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/newsdesk/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: 7, Email: "admin@newsblogs.com", Name: "Admin", Role: model.RoleAdmin}
}

func TestIssueAndVerify(t *testing.T) {
	ti := NewTokenIssuer("a-very-long-secret-used-only-for-tests-123")
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ti.now = func() time.Time { return now }

	token, expires, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(7 * 24 * time.Hour); !expires.Equal(want) {
		t.Errorf("expires = %v, want %v", expires, want)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "admin@newsblogs.com" || claims.Role != model.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	ti := NewTokenIssuer("secret-one-secret-one-secret-one-xx")
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ti.now = func() time.Time { return now }

	token, _, err := ti.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewTokenIssuer("secret-two-secret-two-secret-two-xx")
	other.now = ti.now

	expired := NewTokenIssuer("secret-one-secret-one-secret-one-xx")
	expired.now = func() time.Time { return now.Add(TokenTTL + time.Minute) }

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7, Role: model.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"empty", ti, ""},
		{"garbage", ti, "not.a.token"},
		{"wrong key", other, token},
		{"expired", expired, token},
		{"alg none", ti, unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
