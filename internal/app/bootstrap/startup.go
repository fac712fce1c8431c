// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/jobhub/internal/app/approvals"
	"github.com/dalemusser/jobhub/internal/app/features/health"
	"github.com/dalemusser/jobhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/app/system/auditlog"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/mailer"
	"github.com/dalemusser/jobhub/internal/app/system/notify"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/app/system/ratelimit"
	"github.com/dalemusser/jobhub/internal/app/system/tasks"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/app/system/workers"
	"github.com/dalemusser/jobhub/internal/app/team"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Services are the long-lived application objects built once at startup.
type Services struct {
	Policy    *teampolicy.Policy
	Activity  *auditlog.Logger
	Team      *team.Manager
	Engine    *approvals.Engine
	Tokens    *auth.Tokens
	Pinger    health.Pinger
	Scheduler *workers.Scheduler

	// Accounts backs credential checks at /login.
	Accounts store.Accounts

	// SubmitLimiter throttles anonymous signup and join submissions.
	SubmitLimiter *ratelimit.Limiter
	// LoginLimiter throttles sign-in attempts and limited-account sign-ins.
	LoginLimiter *ratelimit.LoginLimiter

	direct *notify.Direct
	queue  *asynq.Client
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the services, promotes the super admin and starts background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Services == nil {
		return errors.New("startup: DBDeps.Services not allocated")
	}

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	stores := openStores(deps, logger)

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, stores.Accounts, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
			return fmt.Errorf("ensure super admin: %w", err)
		}
	}

	svc := deps.Services
	notifier, err := svc.buildNotifier(appCfg, logger)
	if err != nil {
		return err
	}

	svc.Policy = teampolicy.New(stores.Accounts, stores.Orgs)
	svc.Activity = auditlog.New(stores.Feed, stores.Orgs, stores.Accounts, logger, auditlog.Config{
		Mode:     appCfg.AuditLog,
		Capacity: appCfg.ActivityFeedCap,
	})
	svc.Team = team.NewManager(stores.Accounts, stores.Orgs, stores.Requests, stores.Tx, svc.Policy, notifier, svc.Activity, logger)
	svc.Engine = approvals.NewEngine(approvals.Deps{
		Accounts: stores.Accounts,
		Orgs:     stores.Orgs,
		Requests: stores.Requests,
		Tx:       stores.Tx,
		Policy:   svc.Policy,
		Remover:  svc.Team,
		Notifier: notifier,
		Activity: svc.Activity,
		Logger:   logger,
	}, approvals.Config{AdminEmail: appCfg.AdminEmail})
	svc.Tokens = auth.NewTokens(appCfg.JWTSecret, appCfg.TokenExpiry)
	svc.Pinger = stores.Pinger
	svc.Accounts = stores.Accounts
	svc.SubmitLimiter = ratelimit.New(appCfg.SubmitRateLimit, time.Minute)
	svc.LoginLimiter = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, appCfg.LoginAccountLimit, appCfg.LimitedSignInLimit)

	svc.Scheduler = workers.NewScheduler(logger, timeouts.Long(),
		tasks.RequestReclaimJob(stores.Requests, logger, appCfg.ReclaimInterval, appCfg.RequestRetention),
	)
	svc.Scheduler.Start()

	logger.Info("jobhub services started",
		zap.String("backend", deps.Backend),
		zap.String("notify_mode", appCfg.NotifyMode),
		zap.String("audit_log", appCfg.AuditLog))
	return nil
}

// buildNotifier picks the delivery path for notify_mode.
func (s *Services) buildNotifier(appCfg AppConfig, logger *zap.Logger) (notify.Notifier, error) {
	switch appCfg.NotifyMode {
	case notify.ModeLog:
		return notify.NewLog(logger), nil
	case notify.ModeQueue:
		s.queue = asynq.NewClient(notify.RedisOpt(appCfg.RedisAddr, appCfg.RedisPassword))
		return notify.NewQueue(s.queue, logger), nil
	case notify.ModeDirect:
		m := mailer.New(mailerConfig(appCfg), logger)
		s.direct = notify.NewDirect(m, logger, appCfg.NotifyTimeout)
		return s.direct, nil
	default:
		return nil, fmt.Errorf("unknown notify_mode %q", appCfg.NotifyMode)
	}
}

// mailerConfig is shared with the worker binary.
func mailerConfig(appCfg AppConfig) mailer.Config {
	return mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		SiteName: appCfg.SiteName,
		BaseURL:  appCfg.BaseURL,
	}
}

// MailerConfig exposes the SMTP settings to cmd/jobhub-worker.
func MailerConfig(appCfg AppConfig) mailer.Config { return mailerConfig(appCfg) }

// ensureSuperAdmin promotes the account with email to platform admin, creating
// it when missing. password is set only when the account has none, so a
// credential changed after first boot is never overwritten.
func ensureSuperAdmin(ctx context.Context, accounts store.Accounts, email, password string, logger *zap.Logger) error {
	var hash string
	if password != "" {
		h, err := passwords.Hash(password)
		if err != nil {
			return fmt.Errorf("hash super admin password: %w", err)
		}
		hash = h
	}

	u, err := accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		needsPassword := u.PasswordHash == "" && hash != ""
		if u.HasRole(models.RolePlatformAdmin) && u.Status == models.StatusActive && !needsPassword {
			logger.Debug("super admin already present", zap.String("email", u.Email))
			warnNoPassword(logger, u.Email, u.PasswordHash != "")
			return nil
		}
		if err := accounts.AddRole(ctx, u.ID, models.RolePlatformAdmin); err != nil {
			return err
		}
		setHash := ""
		if needsPassword {
			setHash = hash
		}
		if err := accounts.Activate(ctx, u.ID, setHash); err != nil {
			return err
		}
		logger.Info("promoted super admin", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
		warnNoPassword(logger, u.Email, u.PasswordHash != "" || needsPassword)
		return nil
	case errors.Is(err, errs.ErrInvalidRequest):
		created, err := accounts.Create(ctx, models.User{
			FullName:     "Super Admin",
			Email:        email,
			Roles:        []string{models.RolePlatformAdmin},
			Status:       models.StatusActive,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		logger.Info("created super admin", zap.String("email", created.Email), zap.String("user_id", created.ID.Hex()))
		warnNoPassword(logger, created.Email, hash != "")
		return nil
	default:
		return err
	}
}

func warnNoPassword(logger *zap.Logger, email string, hasPassword bool) {
	if !hasPassword {
		logger.Warn("super admin has no password and cannot sign in; set superadmin_password",
			zap.String("email", email))
	}
}
