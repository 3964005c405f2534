// Package warden is the mute ledger. Several independent subsystems (case
// verdicts, manual moderation) may each want the same user muted for
// different durations and reasons; each simply appends a warrant and the
// per-prisoner heartbeat reconciles the set into a single mute/unmute state.
package warden

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// Clock supplies the current time for warrant activation and expiry.
type Clock func() time.Time

type deps struct {
	store     docstore.Store
	directory directory.Directory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     Clock
	muteRole  string
}

// Warden owns the prisoner registry.
type Warden struct {
	mu        sync.RWMutex
	prisoners map[domain.UserID]*Prisoner
	deps      deps
}

// Option configures a Warden.
type Option func(*Warden)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(w *Warden) {
		if clock != nil {
			w.deps.clock = clock
		}
	}
}

// WithMetrics attaches service metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Warden) { w.deps.metrics = m }
}

// New wires a warden around its store, directory, and mute role.
func New(store docstore.Store, dir directory.Directory, muteRole string, logger *slog.Logger, opts ...Option) (*Warden, error) {
	if store == nil {
		return nil, fmt.Errorf("prisoner store is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if muteRole == "" {
		return nil, fmt.Errorf("mute role is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	w := &Warden{
		prisoners: make(map[domain.UserID]*Prisoner),
		deps: deps{
			store:     store,
			directory: dir,
			logger:    logger,
			clock:     time.Now,
			muteRole:  muteRole,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Load rehydrates the prisoner registry. Undecodable documents are logged
// and skipped.
func (w *Warden) Load(ctx context.Context) error {
	docs, err := w.deps.store.List(ctx, docstore.CollectionPrisoners)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load prisoner documents")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, doc := range docs {
		var p Prisoner
		if err := json.Unmarshal(doc, &p); err != nil {
			w.deps.logger.ErrorContext(ctx, "skipping undecodable prisoner document", "user_id", id, "error", err)
			continue
		}
		p.attach(&w.deps)
		w.prisoners[p.UserID] = &p
	}
	return nil
}

// NewWarrant appends a mute order against the user, creating the prisoner
// record implicitly when none exists. The prisoner heartbeats immediately so
// activation and booking happen within the same call.
func (w *Warden) NewWarrant(ctx context.Context, user domain.UserID, category, description string, author domain.UserID, lenSeconds int64) (domain.WarrantID, error) {
	if user.IsZero() {
		return "", dErrors.New(dErrors.CodeBadRequest, "a warrant requires a subject")
	}

	warrant := &Warrant{
		ID:          domain.WarrantID(uuid.NewString()),
		Category:    category,
		Description: description,
		Author:      author,
		Created:     w.deps.clock(),
		LenSeconds:  lenSeconds,
	}

	for {
		w.mu.Lock()
		p, ok := w.prisoners[user]
		if !ok {
			p = &Prisoner{UserID: user}
			p.attach(&w.deps)
			w.prisoners[user] = p
		}
		w.mu.Unlock()

		p.mu.Lock()
		if p.archived {
			// A heartbeat discharged this record between the registry
			// lookup and here. Retire it and retry on a fresh one.
			p.mu.Unlock()
			w.unregister(user, p)
			continue
		}
		p.Warrants = append(p.Warrants, warrant)
		p.heartBeatLocked(ctx)
		err := w.persistLocked(ctx, p, false)
		p.mu.Unlock()
		if err != nil {
			return "", err
		}
		break
	}

	if w.deps.metrics != nil {
		w.deps.metrics.WarrantsIssued.Inc()
	}
	w.deps.logger.InfoContext(ctx, "warrant issued",
		"user_id", user, "warrant_id", warrant.ID, "category", category, "len_seconds", lenSeconds)
	return warrant.ID, nil
}

// Release removes a warrant by ID and reconciles the prisoner immediately.
func (w *Warden) Release(ctx context.Context, id domain.WarrantID) error {
	p, warrant := w.findWarrant(id)
	if p == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "warrant not found: %s", id)
	}

	p.mu.Lock()
	if p.archived {
		p.mu.Unlock()
		return dErrors.Newf(dErrors.CodeNotFound, "warrant not found: %s", id)
	}
	for i, cand := range p.Warrants {
		if cand == warrant {
			p.Warrants = append(p.Warrants[:i], p.Warrants[i+1:]...)
			break
		}
	}
	archive := p.heartBeatLocked(ctx)
	err := w.persistLocked(ctx, p, archive)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if archive {
		w.unregister(p.UserID, p)
	}

	if w.deps.metrics != nil {
		w.deps.metrics.WarrantsReleased.Inc()
	}
	return nil
}

// Freeze suspends a warrant's clock and enforcement without losing its
// accounting (e.g. time served while appealing).
func (w *Warden) Freeze(ctx context.Context, id domain.WarrantID, frozen bool) error {
	return w.adjustWarrant(ctx, id, func(warrant *Warrant) {
		warrant.Frozen = frozen
		if frozen {
			warrant.Expires = nil
			warrant.Started = nil
		}
	})
}

// SetEnforce toggles whether a warrant demands a mute at all.
func (w *Warden) SetEnforce(ctx context.Context, id domain.WarrantID, enforce bool) error {
	return w.adjustWarrant(ctx, id, func(warrant *Warrant) {
		warrant.NoEnforce = !enforce
		if !enforce {
			warrant.Expires = nil
			warrant.Started = nil
		}
	})
}

func (w *Warden) adjustWarrant(ctx context.Context, id domain.WarrantID, mutate func(*Warrant)) error {
	p, warrant := w.findWarrant(id)
	if p == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "warrant not found: %s", id)
	}
	p.mu.Lock()
	if p.archived {
		p.mu.Unlock()
		return dErrors.Newf(dErrors.CodeNotFound, "warrant not found: %s", id)
	}
	mutate(warrant)
	archive := p.heartBeatLocked(ctx)
	err := w.persistLocked(ctx, p, archive)
	p.mu.Unlock()
	if archive {
		w.unregister(p.UserID, p)
	}
	return err
}

func (w *Warden) findWarrant(id domain.WarrantID) (*Prisoner, *Warrant) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, p := range w.prisoners {
		p.mu.Lock()
		for _, warrant := range p.Warrants {
			if warrant.ID == id {
				p.mu.Unlock()
				return p, warrant
			}
		}
		p.mu.Unlock()
	}
	return nil, nil
}

// Prisoner returns a deep-copied view of one prisoner record.
func (w *Warden) Prisoner(user domain.UserID) (Prisoner, error) {
	w.mu.RLock()
	p, ok := w.prisoners[user]
	w.mu.RUnlock()
	if !ok {
		return Prisoner{}, dErrors.Newf(dErrors.CodeNotFound, "prisoner not found: %s", user)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(), nil
}

// Prisoners returns deep-copied views of every prisoner record.
func (w *Warden) Prisoners() []Prisoner {
	w.mu.RLock()
	list := make([]*Prisoner, 0, len(w.prisoners))
	for _, p := range w.prisoners {
		list = append(list, p)
	}
	w.mu.RUnlock()

	out := make([]Prisoner, 0, len(list))
	for _, p := range list {
		p.mu.Lock()
		out = append(out, p.snapshotLocked())
		p.mu.Unlock()
	}
	return out
}

// Tick heartbeats every prisoner. The scheduler entry point.
func (w *Warden) Tick(ctx context.Context) error {
	w.mu.RLock()
	list := make([]*Prisoner, 0, len(w.prisoners))
	for _, p := range w.prisoners {
		list = append(list, p)
	}
	w.mu.RUnlock()

	for _, p := range list {
		p.mu.Lock()
		if p.archived {
			p.mu.Unlock()
			w.unregister(p.UserID, p)
			continue
		}
		archive := p.heartBeatLocked(ctx)
		if err := w.persistLocked(ctx, p, archive); err != nil {
			w.deps.logger.ErrorContext(ctx, "prisoner persist failed", "user_id", p.UserID, "error", err)
		}
		p.mu.Unlock()
		if archive {
			w.unregister(p.UserID, p)
		}
	}
	return nil
}

// persistLocked saves or, for discharged prisoners, archives the record.
// Caller holds the prisoner lock and must call unregister afterwards when
// archive was requested; the registry lock is never taken under a prisoner
// lock.
func (w *Warden) persistLocked(ctx context.Context, p *Prisoner, archive bool) error {
	if archive {
		if err := w.deps.store.Delete(ctx, docstore.CollectionPrisoners, p.UserID.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "archive prisoner document")
		}
		return nil
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode prisoner document")
	}
	if err := w.deps.store.Save(ctx, docstore.CollectionPrisoners, p.UserID.String(), doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist prisoner document")
	}
	return nil
}

// unregister retires an archived prisoner record. The pointer check keeps a
// concurrent warrant safe: if NewWarrant has already swapped in a fresh
// record for the same user, that record stays.
func (w *Warden) unregister(user domain.UserID, p *Prisoner) {
	w.mu.Lock()
	if w.prisoners[user] == p {
		delete(w.prisoners, user)
	}
	w.mu.Unlock()
}

func (p *Prisoner) snapshotLocked() Prisoner {
	cp := Prisoner{
		UserID:    p.UserID,
		Roles:     append([]string(nil), p.Roles...),
		Booked:    p.Booked,
		Committed: p.Committed,
	}
	for _, warrant := range p.Warrants {
		wcp := *warrant
		cp.Warrants = append(cp.Warrants, &wcp)
	}
	return cp
}
