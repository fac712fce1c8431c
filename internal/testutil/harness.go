package testutil

import (
	"testing"

	"github.com/dalemusser/jobhub/internal/app/approvals"
	"github.com/dalemusser/jobhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/jobhub/internal/app/store/memstore"
	"github.com/dalemusser/jobhub/internal/app/system/auditlog"
	"github.com/dalemusser/jobhub/internal/app/team"
	"go.uber.org/zap"
)

// HarnessAdminEmail is the reviewer address the harness engine notifies.
const HarnessAdminEmail = "review@jobhub.test"

// Harness wires the services over the in-memory backend.
type Harness struct {
	DB       *memstore.DB
	Notifier *RecordingNotifier
	Policy   *teampolicy.Policy
	Activity *auditlog.Logger
	Team     *team.Manager
	Engine   *approvals.Engine
	Fixtures *Fixtures
}

// NewHarness builds a Harness with a fresh store.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	db := memstore.New()
	accounts := db.Accounts()
	orgs := db.Organizations()
	logger := zap.NewNop()

	notifier := &RecordingNotifier{}
	policy := teampolicy.New(accounts, orgs)
	activity := auditlog.New(db.Feed(), orgs, accounts, logger, auditlog.Config{Mode: auditlog.ModeDB})
	mgr := team.NewManager(accounts, orgs, db.Requests(), db, policy, notifier, activity, logger)
	engine := approvals.NewEngine(approvals.Deps{
		Accounts: accounts,
		Orgs:     orgs,
		Requests: db.Requests(),
		Tx:       db,
		Policy:   policy,
		Remover:  mgr,
		Notifier: notifier,
		Activity: activity,
		Logger:   logger,
	}, approvals.Config{AdminEmail: HarnessAdminEmail})

	return &Harness{
		DB:       db,
		Notifier: notifier,
		Policy:   policy,
		Activity: activity,
		Team:     mgr,
		Engine:   engine,
		Fixtures: NewFixtures(t, accounts, orgs),
	}
}
