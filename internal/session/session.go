// Package session holds the engine's view of the current user session.
// Repositories and sync components take a [Source] at construction instead
// of reaching into an ambient auth global; sign-in and sign-out are
// broadcast to subscribers so listeners and pending pushes can be started
// or torn down explicitly.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Session identifies a signed-in user. The engine consumes only the user id
// and the bearer token; authentication itself happens elsewhere.
type Session struct {
	UserID string
	Token  string
}

// Source yields the current session, if any. Implemented by [Registry];
// tests substitute fixed-value fakes.
type Source interface {
	Current() (Session, bool)
}

// Registry is the single mutable session holder, constructed once at
// startup and injected wherever a [Source] is needed.
type Registry struct {
	mu   sync.RWMutex
	cur  *Session
	subs []func(*Session)
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Current implements [Source].
func (r *Registry) Current() (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cur == nil {
		return Session{}, false
	}
	return *r.cur, true
}

// Set records a sign-in and notifies subscribers with the new session.
func (r *Registry) Set(s Session) {
	r.mu.Lock()
	r.cur = &s
	subs := slices.Clone(r.subs)
	r.mu.Unlock()

	for _, fn := range subs {
		fn(&s)
	}
}

// Clear records a sign-out and notifies subscribers with nil.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.cur = nil
	subs := slices.Clone(r.subs)
	r.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

// OnChange registers fn to be called on every Set and Clear. fn receives
// the new session, or nil on sign-out. Callbacks run synchronously on the
// caller of Set/Clear.
func (r *Registry) OnChange(fn func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs = append(r.subs, fn)
}

// FromToken builds a Session from a signed bearer token by extracting the
// user id from the "sub" claim. The signature is not verified here: the
// token was issued to this client by the external auth component and the
// remote store re-verifies it on every request.
func FromToken(signed string) (Session, error) {
	signed = strings.TrimSpace(signed)
	if signed == "" {
		return Session{}, ErrInvalidToken
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(signed, &claims); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Session{UserID: userID, Token: signed}, nil
}
