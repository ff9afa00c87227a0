package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"
)

const (
	CookieName = "admin_token"
	DemoPIN    = "123"
	subject    = "admin"
	adminKey   = "admin"
)

var ErrInvalidToken = errors.New("invalid admin token")

type Config struct {
	PIN     string
	PINHash string
	Secret  []byte
	TTL     time.Duration
}

// Gate switches a client into admin mode. It checks a shared PIN and hands out a
// signed token; it is a UI toggle, not access control.
type Gate struct {
	cfg Config
	log *zerolog.Logger
}

func NewGate(cfg Config, log *zerolog.Logger) (*Gate, error) {
	if cfg.PIN == "" && cfg.PINHash == "" {
		cfg.PIN = DemoPIN
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		log.Warn().Msg("admin.token_secret not set, admin sessions end on restart")
	}
	if cfg.PINHash == "" {
		log.Warn().Msg("admin PIN is a plain demo value; set admin.pin_hash (see hash-pin)")
	}
	return &Gate{cfg: cfg, log: log}, nil
}

func (g *Gate) CheckPIN(pin string) bool {
	if g.cfg.PINHash != "" {
		ok, err := VerifyPIN(pin, g.cfg.PINHash)
		if err != nil {
			g.log.Error().Err(err).Msg("failed to verify admin PIN")
			return false
		}
		return ok
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(g.cfg.PIN)) == 1
}

func (g *Gate) Issue() (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(g.cfg.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(g.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, exp, nil
}

func (g *Gate) Verify(raw string) error {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.cfg.Secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject != subject {
		return ErrInvalidToken
	}
	return nil
}

// TokenFrom returns the admin token from the Authorization header or the cookie.
func TokenFrom(c *ginext.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

func (g *Gate) IsAdmin(c *ginext.Context) bool {
	if v, ok := c.Get(adminKey); ok {
		admin, _ := v.(bool)
		return admin
	}
	raw := TokenFrom(c)
	admin := raw != "" && g.Verify(raw) == nil
	c.Set(adminKey, admin)
	return admin
}

func (g *Gate) TTL() time.Duration { return g.cfg.TTL }
