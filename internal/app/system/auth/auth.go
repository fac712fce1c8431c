package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "jobhub"

// Claims identify the acting account. Roles are deliberately absent: every
// permission check re-reads the account, so a token never carries stale
// authority.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 bearer tokens.
type Tokens struct {
	secret []byte
	expiry time.Duration
}

func NewTokens(secret string, expiry time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), expiry: expiry}
}

// Expiry is the lifetime of issued tokens.
func (t *Tokens) Expiry() time.Duration { return t.expiry }

// Issue returns a signed token whose subject is the account id.
func (t *Tokens) Issue(userID primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID.Hex(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate parses token and returns the account id it names.
func (t *Tokens) Validate(token string) (primitive.ObjectID, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return primitive.NilObjectID, ErrExpiredToken
		}
		return primitive.NilObjectID, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-actor helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const actorKey ctxKey = "actor"

// CurrentActor returns the authenticated account id and a "found?" flag.
func CurrentActor(r *http.Request) (primitive.ObjectID, bool) {
	id, ok := r.Context().Value(actorKey).(primitive.ObjectID)
	return id, ok
}

// LoadActor injects the actor into context when a valid bearer token is
// present. Requests without one continue anonymously; a malformed or expired
// token is rejected with 401.
func LoadActor(tokens *Tokens, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			id, err := tokens.Validate(strings.TrimSpace(raw))
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, withActor(r, id))
		})
	}
}

// RequireSignedIn ensures there is an actor in context (set by LoadActor).
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentActor(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTestActor injects an actor directly, bypassing token validation.
func WithTestActor(r *http.Request, id primitive.ObjectID) *http.Request {
	return withActor(r, id)
}

func withActor(r *http.Request, id primitive.ObjectID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey, id))
}
