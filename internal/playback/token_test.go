package playback

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testKeyPEM(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, pem.EncodeToMemory(block)
}

func TestTokenSignerSignAndVerify(t *testing.T) {
	key, pemKey := testKeyPEM(t)
	signer, err := NewTokenSigner("key-1", pemKey)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	signed, err := signer.Sign("abc123", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", parsed.Claims)
	}
	if claims["sub"] != "abc123" {
		t.Errorf("sub = %v", claims["sub"])
	}
	if claims["kid"] != "key-1" {
		t.Errorf("kid claim = %v", claims["kid"])
	}
	if parsed.Header["kid"] != "key-1" {
		t.Errorf("kid header = %v", parsed.Header["kid"])
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("expiration: %v", err)
	}
	if until := time.Until(exp.Time); until < 55*time.Minute || until > 65*time.Minute {
		t.Errorf("unexpected ttl: %v", until)
	}
}

func TestTokenSignerPKCS8Key(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := NewTokenSigner("key-1", pemKey)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	if _, err := signer.Sign("abc123", time.Minute); err != nil {
		t.Fatalf("Sign: %v", err)
	}
}

func TestTokenSignerRejectsGarbage(t *testing.T) {
	if _, err := NewTokenSigner("key-1", []byte("not a pem")); err == nil {
		t.Fatal("want error for non-PEM input")
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte("junk")})
	if _, err := NewTokenSigner("key-1", pemKey); err == nil {
		t.Fatal("want error for invalid key bytes")
	}
}
