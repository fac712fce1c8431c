// Package memstore is an in-process backend for every store contract. It is
// used when store_backend=memory and by the service tests, and enforces the
// same uniqueness rules the Mongo indexes do.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/app/system/normalize"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ store.Accounts      = (*Accounts)(nil)
	_ store.Organizations = (*Organizations)(nil)
	_ store.Requests      = (*Requests)(nil)
	_ store.Feed          = (*Feed)(nil)
	_ store.TxRunner      = (*DB)(nil)
)

// DB holds all collections behind one lock.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	// active is the running transaction's undo log, if any.
	active *undoLog

	users    map[primitive.ObjectID]models.User
	orgs     map[primitive.ObjectID]models.Organization
	requests map[primitive.ObjectID]models.PendingRequest
	feed     []models.ActivityEntry
}

func New() *DB {
	return &DB{
		users:    make(map[primitive.ObjectID]models.User),
		orgs:     make(map[primitive.ObjectID]models.Organization),
		requests: make(map[primitive.ObjectID]models.PendingRequest),
	}
}

func (db *DB) Accounts() *Accounts           { return &Accounts{db: db} }
func (db *DB) Organizations() *Organizations { return &Organizations{db: db} }
func (db *DB) Requests() *Requests           { return &Requests{db: db} }
func (db *DB) Feed() *Feed                   { return &Feed{db: db} }

type txKey struct{}

// undoLog holds the before-image of every record written inside one
// transaction. A nil image means the record did not exist.
type undoLog struct {
	users    map[primitive.ObjectID]*models.User
	orgs     map[primitive.ObjectID]*models.Organization
	requests map[primitive.ObjectID]*models.PendingRequest
}

func undoFrom(ctx context.Context) *undoLog {
	l, _ := ctx.Value(txKey{}).(*undoLog)
	return l
}

// InTx serializes transactions and, when fn fails, restores only the records
// fn wrote. Writes made outside the transaction are kept. A nested call joins
// the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if undoFrom(ctx) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	l := &undoLog{
		users:    make(map[primitive.ObjectID]*models.User),
		orgs:     make(map[primitive.ObjectID]*models.Organization),
		requests: make(map[primitive.ObjectID]*models.PendingRequest),
	}
	db.mu.Lock()
	db.active = l
	db.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, l))

	db.mu.Lock()
	defer db.mu.Unlock()
	db.active = nil
	if err != nil {
		db.rollback(l)
	}
	return err
}

// rollback restores l's before-images. Callers hold mu.
func (db *DB) rollback(l *undoLog) {
	for id, u := range l.users {
		if u == nil {
			delete(db.users, id)
		} else {
			db.users[id] = *u
		}
	}
	for id, o := range l.orgs {
		if o == nil {
			delete(db.orgs, id)
		} else {
			db.orgs[id] = *o
		}
	}
	for id, r := range l.requests {
		if r == nil {
			delete(db.requests, id)
		} else {
			db.requests[id] = *r
		}
	}
}

// The touch helpers record a before-image the first time a transaction
// writes a record. Callers hold mu.

func (db *DB) touchUser(ctx context.Context, id primitive.ObjectID) {
	l := undoFrom(ctx)
	if l == nil {
		return
	}
	if _, seen := l.users[id]; seen {
		return
	}
	if u, ok := db.users[id]; ok {
		c := copyUser(u)
		l.users[id] = &c
		return
	}
	l.users[id] = nil
}

func (db *DB) touchOrg(ctx context.Context, id primitive.ObjectID) {
	l := undoFrom(ctx)
	if l == nil {
		return
	}
	if _, seen := l.orgs[id]; seen {
		return
	}
	if o, ok := db.orgs[id]; ok {
		l.orgs[id] = &o
		return
	}
	l.orgs[id] = nil
}

func (db *DB) touchRequest(ctx context.Context, id primitive.ObjectID) {
	l := undoFrom(ctx)
	if l == nil {
		return
	}
	if _, seen := l.requests[id]; seen {
		return
	}
	if r, ok := db.requests[id]; ok {
		l.requests[id] = &r
		return
	}
	l.requests[id] = nil
}

// emailHeld reports whether email belongs to a stored account or to one the
// running transaction deleted, which a rollback would bring back. Callers
// hold mu.
func (db *DB) emailHeld(ctx context.Context, email string) bool {
	for _, u := range db.users {
		if u.Email == email {
			return true
		}
	}
	if db.active == nil || undoFrom(ctx) == db.active {
		return false
	}
	for id, before := range db.active.users {
		if before == nil || before.Email != email {
			continue
		}
		if _, live := db.users[id]; !live {
			return true
		}
	}
	return false
}

func copyUser(u models.User) models.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

func idPtr(id primitive.ObjectID) *primitive.ObjectID { return &id }

/*─────────────────────────────────────────────────────────────────────────────*
| Accounts                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type Accounts struct{ db *DB }

func (a *Accounts) Create(ctx context.Context, u models.User) (models.User, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	u.Email = normalize.Email(u.Email)
	if a.db.emailHeld(ctx, u.Email) {
		return models.User{}, errs.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.OrganizationID != nil && u.JoinedAt == nil {
		u.JoinedAt = &now
	}
	a.db.touchUser(ctx, u.ID)
	a.db.users[u.ID] = copyUser(u)
	return copyUser(u), nil
}

func (a *Accounts) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	u, ok := a.db.users[id]
	if !ok {
		return nil, errs.ErrInvalidRequest
	}
	u = copyUser(u)
	return &u, nil
}

func (a *Accounts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	email = normalize.Email(email)
	for _, u := range a.db.users {
		if u.Email == email {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, errs.ErrInvalidRequest
}

func (a *Accounts) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := a.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if err == errs.ErrInvalidRequest {
		return false, nil
	}
	return false, err
}

func (a *Accounts) mutate(ctx context.Context, id primitive.ObjectID, fn func(u *models.User)) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	u, ok := a.db.users[id]
	if !ok {
		return errs.ErrInvalidRequest
	}
	a.db.touchUser(ctx, id)
	u = copyUser(u)
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	a.db.users[id] = u
	return nil
}

func addRole(u *models.User, role string) {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
}

func removeRoles(u *models.User, roles ...string) {
	out := u.Roles[:0]
	for _, r := range u.Roles {
		drop := false
		for _, x := range roles {
			if r == x {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, r)
		}
	}
	u.Roles = out
}

func (a *Accounts) Activate(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return a.mutate(ctx, id, func(u *models.User) {
		u.Status = models.StatusActive
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
	})
}

func (a *Accounts) SetMembership(ctx context.Context, id, orgID primitive.ObjectID, jobTitle string) error {
	return a.mutate(ctx, id, func(u *models.User) {
		now := time.Now().UTC()
		u.OrganizationID = idPtr(orgID)
		u.JoinedAt = &now
		if jobTitle != "" {
			u.JobTitle = jobTitle
		}
		addRole(u, models.RoleMember)
	})
}

func (a *Accounts) ClearMembership(ctx context.Context, id primitive.ObjectID) error {
	return a.mutate(ctx, id, func(u *models.User) {
		u.OrganizationID = nil
		u.JoinedAt = nil
		removeRoles(u, models.RoleMember, models.RoleOwner)
	})
}

func (a *Accounts) AddRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return a.mutate(ctx, id, func(u *models.User) { addRole(u, role) })
}

func (a *Accounts) RemoveRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return a.mutate(ctx, id, func(u *models.User) { removeRoles(u, role) })
}

func (a *Accounts) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	if _, ok := a.db.users[id]; !ok {
		return 0, nil
	}
	a.db.touchUser(ctx, id)
	delete(a.db.users, id)
	return 1, nil
}

func (a *Accounts) members(orgID primitive.ObjectID) []models.User {
	var out []models.User
	for _, u := range a.db.users {
		if u.MemberOf(orgID) {
			out = append(out, copyUser(u))
		}
	}
	return out
}

func (a *Accounts) ListByOrganization(_ context.Context, orgID primitive.ObjectID) ([]models.User, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	out := a.members(orgID)
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].JoinedAt != nil {
			ti = *out[i].JoinedAt
		}
		if out[j].JoinedAt != nil {
			tj = *out[j].JoinedAt
		}
		if ti.Equal(tj) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return ti.Before(tj)
	})
	return out, nil
}

func (a *Accounts) CountByOrganization(_ context.Context, orgID primitive.ObjectID) (int64, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	return int64(len(a.members(orgID))), nil
}

func (a *Accounts) RecentlyCreated(_ context.Context, limit int) ([]models.User, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	out := make([]models.User, 0, len(a.db.users))
	for _, u := range a.db.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Organizations                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type Organizations struct{ db *DB }

func (o *Organizations) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.Status == "" {
		org.Status = models.OrgPending
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	o.db.touchOrg(ctx, org.ID)
	o.db.orgs[org.ID] = org
	return org, nil
}

func (o *Organizations) GetByID(_ context.Context, id primitive.ObjectID) (*models.Organization, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	org, ok := o.db.orgs[id]
	if !ok {
		return nil, errs.ErrInvalidRequest
	}
	return &org, nil
}

func (o *Organizations) Publish(ctx context.Context, id, ownerID primitive.ObjectID) error {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	org, ok := o.db.orgs[id]
	if !ok {
		return errs.ErrInvalidRequest
	}
	o.db.touchOrg(ctx, id)
	org.Status = models.OrgPublished
	org.OwnerUserID = idPtr(ownerID)
	org.UpdatedAt = time.Now().UTC()
	o.db.orgs[id] = org
	return nil
}

func (o *Organizations) SwapOwner(ctx context.Context, id, from, to primitive.ObjectID) error {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	org, ok := o.db.orgs[id]
	if !ok || !org.IsOwnedBy(from) {
		return errs.ErrInvalidRequest
	}
	o.db.touchOrg(ctx, id)
	org.OwnerUserID = idPtr(to)
	org.UpdatedAt = time.Now().UTC()
	o.db.orgs[id] = org
	return nil
}

func (o *Organizations) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	org, ok := o.db.orgs[id]
	if !ok {
		return errs.ErrInvalidRequest
	}
	o.db.touchOrg(ctx, id)
	org.Status = status
	org.UpdatedAt = time.Now().UTC()
	o.db.orgs[id] = org
	return nil
}

func (o *Organizations) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	if _, ok := o.db.orgs[id]; !ok {
		return 0, nil
	}
	o.db.touchOrg(ctx, id)
	delete(o.db.orgs, id)
	return 1, nil
}

func (o *Organizations) RecentlyCreated(_ context.Context, limit int) ([]models.Organization, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	out := make([]models.Organization, 0, len(o.db.orgs))
	for _, org := range o.db.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Requests                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type Requests struct{ db *DB }

func (q *Requests) Create(ctx context.Context, req models.PendingRequest) (models.PendingRequest, error) {
	if !req.Kind.Valid() {
		return models.PendingRequest{}, errs.Validation("bad_kind", "unknown request kind")
	}
	q.db.mu.Lock()
	defer q.db.mu.Unlock()

	if req.Status == "" {
		req.Status = models.RequestPending
	}
	req.Open = !req.Status.Terminal()
	if req.Open && q.openConflict(req.Kind, req.TargetUserID, primitive.NilObjectID) {
		return models.PendingRequest{}, errs.ErrRemovalAlreadyRequested
	}
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.CreatedAt = now
	req.UpdatedAt = now
	q.db.touchRequest(ctx, req.ID)
	q.db.requests[req.ID] = req
	return req, nil
}

// openConflict reports whether another open request of kind targets target.
// Callers hold the lock.
func (q *Requests) openConflict(kind models.RequestKind, target *primitive.ObjectID, self primitive.ObjectID) bool {
	if target == nil {
		return false
	}
	for id, r := range q.db.requests {
		if id != self && r.Open && r.Kind == kind && r.TargetUserID != nil && *r.TargetUserID == *target {
			return true
		}
	}
	return false
}

func (q *Requests) GetByID(_ context.Context, id primitive.ObjectID) (*models.PendingRequest, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	r, ok := q.db.requests[id]
	if !ok {
		return nil, errs.ErrInvalidRequest
	}
	return &r, nil
}

func (q *Requests) Apply(ctx context.Context, id primitive.ObjectID, t models.Transition) (models.PendingRequest, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()

	r, ok := q.db.requests[id]
	if !ok {
		return models.PendingRequest{}, errs.ErrInvalidRequest
	}
	allowed := false
	for _, s := range t.From {
		if r.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.PendingRequest{}, errs.ErrInvalidRequest
	}

	now := time.Now().UTC()
	if t.To.Terminal() {
		r.Open = false
		r.ResolvedAt = &now
		r.ResolvedBy = t.By
	} else {
		if !r.Open && q.openConflict(r.Kind, r.TargetUserID, r.ID) {
			return models.PendingRequest{}, errs.ErrRemovalAlreadyRequested
		}
		r.Open = true
		r.ResolvedAt = nil
		r.ResolvedBy = nil
	}
	r.Status = t.To
	if t.Note != "" {
		r.Note = t.Note
	}
	r.UpdatedAt = now
	q.db.touchRequest(ctx, id)
	q.db.requests[id] = r
	return r, nil
}

func matches(r models.PendingRequest, f models.RequestQuery) bool {
	if !r.Open || (f.Kind != "" && r.Kind != f.Kind) {
		return false
	}
	if f.OrganizationID != nil && (r.OrganizationID == nil || *r.OrganizationID != *f.OrganizationID) {
		return false
	}
	if f.TargetUserID != nil && (r.TargetUserID == nil || *r.TargetUserID != *f.TargetUserID) {
		return false
	}
	return true
}

func (q *Requests) ListOpen(_ context.Context, f models.RequestQuery) ([]models.PendingRequest, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	var out []models.PendingRequest
	for _, r := range q.db.requests {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (q *Requests) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	var n int64
	for id, r := range q.db.requests {
		if !r.Open && r.ResolvedAt != nil && r.ResolvedAt.Before(cutoff) {
			q.db.touchRequest(ctx, id)
			delete(q.db.requests, id)
			n++
		}
	}
	return n, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Feed                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type Feed struct{ db *DB }

func (f *Feed) Append(_ context.Context, entry models.ActivityEntry, capacity int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.feed = append([]models.ActivityEntry{entry}, f.db.feed...)
	if capacity > 0 && len(f.db.feed) > capacity {
		f.db.feed = f.db.feed[:capacity]
	}
	return nil
}

func (f *Feed) List(_ context.Context, n int) ([]models.ActivityEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if n > len(f.db.feed) {
		n = len(f.db.feed)
	}
	if n <= 0 {
		return nil, nil
	}
	return append([]models.ActivityEntry(nil), f.db.feed[:n]...), nil
}
