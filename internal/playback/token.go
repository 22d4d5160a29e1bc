package playback

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner issues signed playback tokens locally with the account's
// playback signing key, avoiding a round trip to the platform per asset.
type TokenSigner struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewTokenSigner parses an RSA private key in PEM form (PKCS#1 or PKCS#8).
func NewTokenSigner(keyID string, pemKey []byte) (*TokenSigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("playback signing key: no PEM block found")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsed, err8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err8 != nil {
			return nil, fmt.Errorf("playback signing key: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("playback signing key: not an RSA key")
		}
		key = rsaKey
	}
	return &TokenSigner{keyID: keyID, key: key}, nil
}

// Sign issues a token for the video that expires after ttl. The platform
// accepts the token anywhere the raw UID would appear in a playback URL.
func (s *TokenSigner) Sign(uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": uid,
		"kid": s.keyID,
		"exp": now.Add(ttl).Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
	})
	tok.Header["kid"] = s.keyID
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign playback token: %w", err)
	}
	return signed, nil
}
