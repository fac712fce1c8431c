// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	ferrors "github.com/dalemusser/jobhub/internal/app/features/errors"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/normalize"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/app/system/ratelimit"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.uber.org/zap"
)

type accountReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler exchanges an email and password for a bearer token.
//
// Status rules:
//   - active accounts sign in normally
//   - limited accounts (signup awaiting approval) sign in, a few times per hour
//   - pending accounts (join awaiting approval) are refused
type Handler struct {
	Accounts accountReader
	Tokens   *auth.Tokens
	Limiter  *ratelimit.LoginLimiter
	Log      *zap.Logger
}

func NewHandler(accounts accountReader, tokens *auth.Tokens, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Accounts: accounts, Tokens: tokens, Limiter: limiter, Log: logger}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		ferrors.Write(w, r, h.Log, errs.Validation("credentials_required", "email and password are required"))
		return
	}

	if ok, wait := h.Limiter.Check(r, email); !ok {
		h.Log.Warn("sign-in rate limited",
			zap.String("email", email),
			zap.String("ip", ratelimit.ClientIP(r)))
		ratelimit.TooMany(w, wait, "too many sign-in attempts; please wait before trying again")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "sign in")
	defer cancel()

	u, err := h.authenticate(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			h.Log.Info("sign-in failed", zap.String("email", email), zap.String("ip", ratelimit.ClientIP(r)))
		}
		ferrors.Write(w, r, h.Log, err)
		return
	}

	switch u.Status {
	case models.StatusActive:
	case models.StatusLimited:
		if ok, wait := h.Limiter.AllowLimited(email); !ok {
			ratelimit.TooMany(w, wait, "sign-in is limited until the account is approved")
			return
		}
	default:
		h.Log.Info("sign-in refused", zap.String("user_id", u.ID.Hex()), zap.String("status", u.Status))
		ferrors.Write(w, r, h.Log, errs.ErrAccountPending)
		return
	}
	h.Limiter.ResetAccount(email)

	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("signed in", zap.String("user_id", u.ID.Hex()), zap.String("status", u.Status))
	ferrors.JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.Tokens.Expiry().Seconds()),
		UserID:    u.ID.Hex(),
		Status:    u.Status,
	})
}

// authenticate returns the account for email when password matches it.
func (h *Handler) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := h.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" || !passwords.Check(u.PasswordHash, password) {
		return nil, errs.ErrInvalidCredentials
	}
	return u, nil
}
