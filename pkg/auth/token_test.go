package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/tailrace/lobby-backend/pkg/config"
)

const testAddress = "0x00000000000000000000000000000000DeaDBeef"

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "gtlobby",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{Address: testAddress})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.Address != strings.ToLower(testAddress) {
		t.Fatalf("expected normalized address, got %s", claims.Address)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected a jti to be generated")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "gtlobby",
		ExpirationMinutes: 5,
	}
	past := time.Now().UTC().Add(-time.Hour)

	token, err := MintAccessToken(cfg, past, AccessTokenPayload{Address: testAddress})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "gtlobby",
		ExpirationMinutes: 5,
	}

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{Address: testAddress})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	cfg.Secret = "other"
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected signature mismatch to be rejected")
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "mixed case", in: testAddress, want: strings.ToLower(testAddress)},
		{name: "trims whitespace", in: "  " + testAddress + "  ", want: strings.ToLower(testAddress)},
		{name: "missing prefix", in: strings.TrimPrefix(testAddress, "0x"), wantErr: true},
		{name: "too short", in: "0xdeadbeef", wantErr: true},
		{name: "non hex", in: "0x" + strings.Repeat("z", 40), wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeAddress(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize %q: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
