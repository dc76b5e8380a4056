package auth

import "testing"

// TestAccessTokenRoundTrip verifies access token round trip behavior.
func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := SignAccessToken("secret", "admin")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	claims, err := ParseAccessToken("secret", token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Role != "admin" || claims.Subject != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

// TestAccessTokenWrongSecret verifies wrong secret behavior.
func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := SignAccessToken("secret", "admin")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := ParseAccessToken("other", token); err == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}
