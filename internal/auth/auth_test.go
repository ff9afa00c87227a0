package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	log := zerolog.Nop()
	g, err := NewGate(cfg, &log)
	require.NoError(t, err)
	return g
}

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$")

	ok, err := VerifyPIN("4321", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPIN("1234", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPIN("4321", "not-a-hash")
	assert.Error(t, err)
}

func TestCheckPIN_Demo(t *testing.T) {
	g := newGate(t, Config{})
	assert.True(t, g.CheckPIN(DemoPIN))
	assert.False(t, g.CheckPIN("12"))
	assert.False(t, g.CheckPIN(""))
	assert.Equal(t, 12*time.Hour, g.TTL())
}

func TestCheckPIN_Hash(t *testing.T) {
	hash, err := HashPIN("9999")
	require.NoError(t, err)

	g := newGate(t, Config{PINHash: hash, Secret: []byte("s")})
	assert.True(t, g.CheckPIN("9999"))
	assert.False(t, g.CheckPIN(DemoPIN))
}

func TestIssueAndVerify(t *testing.T) {
	g := newGate(t, Config{Secret: []byte("secret"), TTL: time.Minute})

	token, exp, err := g.Issue()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)
	assert.NoError(t, g.Verify(token))

	other := newGate(t, Config{Secret: []byte("other")})
	assert.ErrorIs(t, other.Verify(token), ErrInvalidToken)
	assert.ErrorIs(t, g.Verify("garbage"), ErrInvalidToken)
}

func TestVerify_RejectsExpiredAndForeignSubject(t *testing.T) {
	secret := []byte("secret")
	g := newGate(t, Config{Secret: secret})

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Verify(expired), ErrInvalidToken)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "visitor",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Verify(foreign), ErrInvalidToken)
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := newGate(t, Config{Secret: []byte("secret")})
	token, _, err := g.Issue()
	require.NoError(t, err)

	r := gin.New()
	r.DELETE("/x", g.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/x", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
