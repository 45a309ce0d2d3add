package flow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE challenge methods as defined in RFC 7636.
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// PKCEPair holds a PKCE code verifier and its derived challenge. The pair is
// generated once per authorization request, held only in memory for the
// lifetime of that request, and never persisted or logged.
type PKCEPair struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCE generates a PKCE pair using the S256 challenge method.
// The verifier is a cryptographically random string using the characters
// [A-Z] / [a-z] / [0-9] / "-" / "." / "_" / "~" with a minimum length of
// 43 characters and a maximum length of 128 characters.
func GeneratePKCE() (*PKCEPair, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, err
	}
	return &PKCEPair{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
		Method:    PKCEMethodS256,
	}, nil
}

// GeneratePlainPKCE generates a PKCE pair using the plain challenge method,
// where the challenge equals the verifier. Plain defeats the interception
// resistance S256 provides and exists only for providers that cannot do
// S256; it is never chosen as a fallback.
func GeneratePlainPKCE() (*PKCEPair, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, err
	}
	return &PKCEPair{
		Verifier:  verifier,
		Challenge: verifier,
		Method:    PKCEMethodPlain,
	}, nil
}

// generateCodeVerifier generates a random code verifier for PKCE.
// Uses 32 bytes (256 bits) which results in 43 characters when base64url
// encoded, the RFC 7636 minimum.
func generateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Base64 URL encoding without padding as per RFC 7636
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChallengeS256 derives the S256 code challenge from a code verifier:
// code_challenge = BASE64URL(SHA256(ASCII(code_verifier)))
func ChallengeS256(verifier string) string {
	h := sha256.New()
	h.Write([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// generateState generates a random state parameter for CSRF protection.
// 32 bytes provides 256 bits of entropy, well above the 96-bit floor
// required for the state parameter to be unpredictable.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateNonce generates a random nonce for ID token replay protection.
func generateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
