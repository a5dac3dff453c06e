package auth

import (
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// codeLen is the length of a rotating access code.
const codeLen = 8

// CodeRotator hands out one-time access codes. Redeeming the current code
// rotates to a fresh one, so each code authenticates exactly one login.
//
// Safe for concurrent use.
type CodeRotator struct {
	mu      sync.Mutex
	current string
}

// NewCodeRotator seeds the rotator with an initial code.
func NewCodeRotator() *CodeRotator {
	return &CodeRotator{current: newCode()}
}

// Current returns the code that will authenticate the next login.
func (r *CodeRotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Redeem checks code against the current one. On a match it rotates and
// returns the next code; otherwise ok is false and the current code stays.
func (r *CodeRotator) Redeem(code string) (next string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subtle.ConstantTimeCompare([]byte(code), []byte(r.current)) != 1 {
		return "", false
	}
	r.current = newCode()
	return r.current, true
}

func newCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:codeLen]
}
