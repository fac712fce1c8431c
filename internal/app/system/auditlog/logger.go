// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for Config.Mode.
const (
	ModeAll = "all" // feed + zap
	ModeDB  = "db"  // feed only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// DerivedLimit is how many recent organizations and accounts Recent
// synthesizes entries for.
const DerivedLimit = 5

// Config holds activity logging configuration.
type Config struct {
	Mode     string
	Capacity int
}

type orgSource interface {
	RecentlyCreated(ctx context.Context, limit int) ([]models.Organization, error)
}

type accountSource interface {
	RecentlyCreated(ctx context.Context, limit int) ([]models.User, error)
}

// Logger appends lifecycle events to the bounded feed and the structured log.
// It is observational only: failures are logged, never returned.
type Logger struct {
	feed     store.Feed
	orgs     orgSource
	accounts accountSource
	zapLog   *zap.Logger
	config   Config
}

// New creates a new activity Logger. orgs and accounts may be nil, in which
// case Recent returns feed entries only.
func New(feed store.Feed, orgs orgSource, accounts accountSource, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = ModeAll
	}
	if config.Capacity <= 0 {
		config.Capacity = 50
	}
	return &Logger{feed: feed, orgs: orgs, accounts: accounts, zapLog: zapLog, config: config}
}

// Append records entry according to the configured mode. A nil Logger is a
// no-op so tests can leave it out.
func (l *Logger) Append(ctx context.Context, entry models.ActivityEntry) {
	if l == nil || l.config.Mode == ModeOff {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Icon == "" && entry.Color == "" {
		entry.Icon, entry.Color = styleFor(entry.Type)
	}

	if l.config.Mode == ModeAll || l.config.Mode == ModeLog {
		l.logToZap(entry)
	}
	if l.config.Mode == ModeAll || l.config.Mode == ModeDB {
		if err := l.feed.Append(ctx, entry, l.config.Capacity); err != nil {
			l.zapLog.Error("failed to append activity entry",
				zap.String("type", entry.Type),
				zap.Error(err))
		}
	}
}

func (l *Logger) logToZap(entry models.ActivityEntry) {
	fields := []zap.Field{
		zap.Bool("activity", true),
		zap.String("type", entry.Type),
		zap.String("text", entry.Text),
	}
	if entry.OrganizationID != nil {
		fields = append(fields, zap.String("org_id", entry.OrganizationID.Hex()))
	}
	if entry.ActorID != nil {
		fields = append(fields, zap.String("actor_id", entry.ActorID.Hex()))
	}
	l.zapLog.Info("activity", fields...)
}

// Recent returns up to n entries, newest first, merging the stored feed with
// entries derived from recently created organizations and accounts.
func (l *Logger) Recent(ctx context.Context, n int) ([]models.ActivityEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := l.feed.List(ctx, n)
	if err != nil {
		return nil, err
	}

	if l.orgs != nil {
		orgs, err := l.orgs.RecentlyCreated(ctx, DerivedLimit)
		if err != nil {
			return nil, err
		}
		for _, o := range orgs {
			entries = append(entries, derived("org-"+o.ID.Hex(), models.ActivityOrganizationCreated,
				"Organization "+o.Name+" created", &o.ID, o.CreatedAt))
		}
	}
	if l.accounts != nil {
		users, err := l.accounts.RecentlyCreated(ctx, DerivedLimit)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			entries = append(entries, derived("user-"+u.ID.Hex(), models.ActivityAccountCreated,
				"Account created for "+u.FullName, u.OrganizationID, u.CreatedAt))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func derived(id, typ, text string, orgID *primitive.ObjectID, at time.Time) models.ActivityEntry {
	icon, color := styleFor(typ)
	return models.ActivityEntry{
		ID:             id,
		Type:           typ,
		Text:           text,
		Icon:           icon,
		Color:          color,
		OrganizationID: orgID,
		Timestamp:      at,
	}
}

func styleFor(typ string) (icon, color string) {
	switch typ {
	case models.ActivitySignupRequested, models.ActivityJoinRequested:
		return "inbox", "blue"
	case models.ActivityRemovalRequested:
		return "user-minus", "orange"
	case models.ActivityRequestApproved:
		return "check", "green"
	case models.ActivityRequestDeclined:
		return "x", "red"
	case models.ActivityInfoRequested:
		return "help-circle", "yellow"
	case models.ActivityMemberAdded, models.ActivityAccountCreated:
		return "user-plus", "green"
	case models.ActivityMemberRemoved:
		return "user-x", "red"
	case models.ActivityOwnershipTransferred:
		return "key", "purple"
	case models.ActivityOrganizationCreated:
		return "building", "blue"
	}
	return "activity", "gray"
}
