package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestRegistry_CurrentEmpty(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Current()
	assert.False(t, ok)
}

func TestRegistry_SetAndClear(t *testing.T) {
	r := NewRegistry()

	r.Set(Session{UserID: "user-1", Token: "tok"})

	got, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "tok", got.Token)

	r.Clear()
	_, ok = r.Current()
	assert.False(t, ok)
}

func TestRegistry_OnChangeNotifiesSignInAndSignOut(t *testing.T) {
	r := NewRegistry()

	var events []*Session
	r.OnChange(func(s *Session) { events = append(events, s) })

	r.Set(Session{UserID: "user-1"})
	r.Clear()

	require.Len(t, events, 2)
	require.NotNil(t, events[0])
	assert.Equal(t, "user-1", events[0].UserID)
	assert.Nil(t, events[1], "sign-out notifies with nil")
}

func TestRegistry_MultipleSubscribers(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.OnChange(func(*Session) { calls++ })
	r.OnChange(func(*Session) { calls++ })

	r.Set(Session{UserID: "u"})
	assert.Equal(t, 2, calls)
}

func TestRegistry_SubscriberAddedDuringNotify(t *testing.T) {
	r := NewRegistry()

	lateCalls := 0
	r.OnChange(func(*Session) {
		r.OnChange(func(*Session) { lateCalls++ })
	})

	// The subscriber registered mid-notification must not see the event
	// that triggered its registration.
	r.Set(Session{UserID: "u"})
	assert.Equal(t, 0, lateCalls)

	r.Clear()
	assert.Equal(t, 1, lateCalls)
}

func TestFromToken_ExtractsSubject(t *testing.T) {
	token := signedToken(t, jwt.RegisteredClaims{Subject: "user-42"})

	sess, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sess.UserID)
	assert.Equal(t, token, sess.Token)
}

func TestFromToken_TrimsWhitespace(t *testing.T) {
	token := signedToken(t, jwt.RegisteredClaims{Subject: "user-42"})

	sess, err := FromToken("  " + token + "\n")
	require.NoError(t, err)
	assert.Equal(t, "user-42", sess.UserID)
	assert.Equal(t, token, sess.Token)
}

func TestFromToken_EmptyToken(t *testing.T) {
	_, err := FromToken("   ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromToken_Garbage(t *testing.T) {
	_, err := FromToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromToken_MissingSubject(t *testing.T) {
	token := signedToken(t, jwt.RegisteredClaims{Issuer: "auth"})

	_, err := FromToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
