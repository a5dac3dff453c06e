package auth

import (
	"crypto/subtle"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned when a login attempt presents neither the
// configured password nor the current access code.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// tokenSubject identifies logged-in gateway users. There is a single shared
// credential, so all tokens carry the same subject.
const tokenSubject = "operator"

// Authenticator validates login credentials and mints session tokens.
// When no password is configured the gateway runs open and Enabled reports
// false.
type Authenticator struct {
	password string
	signer   *TokenSigner
	rotator  *CodeRotator // nil when code rotation is disabled
}

// NewAuthenticator wires a password, a token signer and an optional code
// rotator. Pass a nil rotator to disable one-time access codes.
func NewAuthenticator(password string, signer *TokenSigner, rotator *CodeRotator) *Authenticator {
	return &Authenticator{password: password, signer: signer, rotator: rotator}
}

// Enabled reports whether logins are required at all.
func (a *Authenticator) Enabled() bool { return a.password != "" }

// FirstCode returns the initial access code to surface at startup, or ""
// when rotation is disabled.
func (a *Authenticator) FirstCode() string {
	if a.rotator == nil {
		return ""
	}
	return a.rotator.Current()
}

// Login validates credential (the password or the current access code) and
// returns a signed session token. When the access code was used, nextCode
// carries the freshly rotated code to show the user.
func (a *Authenticator) Login(credential string, now time.Time) (token, nextCode string, err error) {
	if subtle.ConstantTimeCompare([]byte(credential), []byte(a.password)) == 1 {
		return a.signer.Issue(tokenSubject, now), "", nil
	}
	if a.rotator != nil {
		if next, ok := a.rotator.Redeem(credential); ok {
			return a.signer.Issue(tokenSubject, now), next, nil
		}
	}
	return "", "", ErrInvalidCredentials
}

// Check verifies a session token.
func (a *Authenticator) Check(token string, now time.Time) error {
	_, err := a.signer.Verify(token, now)
	return err
}
