// Package googleauth verifies Google ID tokens and extracts the identity
// they assert.
package googleauth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ErrInvalidCredential is returned for any token that does not verify.
var ErrInvalidCredential = errors.New("invalid google credential")

// Assertion is the verified identity carried by an ID token.
type Assertion struct {
	Subject       string
	Email         string
	GivenName     string
	FamilyName    string
	EmailVerified bool
}

// ValidateFunc checks signature, expiry and audience of a raw token.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type Verifier struct {
	clientID string
	validate ValidateFunc
}

// NewVerifier validates tokens against Google's published keys.
func NewVerifier(clientID string) *Verifier {
	return NewVerifierWithValidator(clientID, idtoken.Validate)
}

func NewVerifierWithValidator(clientID string, validate ValidateFunc) *Verifier {
	return &Verifier{clientID: clientID, validate: validate}
}

var issuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

func (v *Verifier) Verify(ctx context.Context, credential string) (*Assertion, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("%w: google client id is not configured", ErrInvalidCredential)
	}

	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !issuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidCredential, payload.Issuer)
	}

	email := claimString(payload.Claims, "email")
	if email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrInvalidCredential)
	}

	return &Assertion{
		Subject:       payload.Subject,
		Email:         email,
		GivenName:     claimString(payload.Claims, "given_name"),
		FamilyName:    claimString(payload.Claims, "family_name"),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

// claimBool accepts both JSON booleans and the "true" string some issuers send.
func claimBool(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
