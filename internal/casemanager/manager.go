package casemanager

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

// Manager owns the active-case registry. Cases are added by filing,
// removed by closing, and rehydrated from persistence at startup; nothing
// else mutates the registry.
type Manager struct {
	mu    sync.RWMutex
	cases map[domain.CaseID]*Case
	deps  Deps
}

// NewManager wires a manager around its collaborators.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("case store is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if deps.Warden == nil {
		return nil, fmt.Errorf("warrant issuer is required")
	}
	if deps.Clock == nil || deps.RNG == nil || deps.Logger == nil {
		return nil, fmt.Errorf("clock, rng, and logger are required")
	}

	m := &Manager{cases: make(map[domain.CaseID]*Case), deps: deps}
	m.deps.Disqualified = m.partyToActiveCase
	return m, nil
}

// Load rehydrates the registry from persistence. Documents that fail to
// decode are logged and skipped; a partial load never crashes the process.
func (m *Manager) Load(ctx context.Context) error {
	docs, err := m.deps.Store.List(ctx, docstore.CollectionCases)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load case documents")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, doc := range docs {
		var c Case
		if err := json.Unmarshal(doc, &c); err != nil {
			m.deps.Logger.ErrorContext(ctx, "skipping undecodable case document", "case_id", id, "error", err)
			continue
		}
		c.attach(&m.deps)
		m.cases[c.ID] = &c
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.CasesOpen.Set(float64(len(m.cases)))
	}
	return nil
}

// FileCase opens a new case between two parties and registers it.
func (m *Manager) FileCase(ctx context.Context, plaintiff, defense domain.UserID, title, description string, penalties PenaltySet) (*Case, error) {
	if plaintiff.IsZero() || defense.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "plaintiff and defense are required")
	}
	if plaintiff == defense {
		return nil, dErrors.New(dErrors.CodeBadRequest, "you cannot file a case against yourself")
	}
	if len(penalties) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a case must propose at least one penalty")
	}

	m.mu.Lock()
	now := m.deps.Clock()
	var id domain.CaseID
	for {
		id = domain.NewCaseID(now, m.deps.RNG)
		if _, taken := m.cases[id]; !taken {
			break
		}
	}

	c := &Case{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      StatusJurySelection,
		Stage:       StageJurySelection,
		Created:     now,
		Plaintiff:   plaintiff,
		Defense:     defense,
		Penalties:   penalties,
		KnownUsers:  make(map[domain.UserID]string),
		Anonymization: map[domain.UserID]string{
			plaintiff: "The Plaintiff",
			defense:   "The Defense",
		},
	}
	c.attach(&m.deps)
	m.cases[id] = c
	m.mu.Unlock()

	c.lock()
	c.KnownUsers[plaintiff] = m.deps.Directory.DisplayName(ctx, plaintiff)
	c.KnownUsers[defense] = m.deps.Directory.DisplayName(ctx, defense)
	c.recordAndAnnounceLocked(ctx, EventCaseFiled, plaintiff,
		fmt.Sprintf("Case filed: %s. Proposed penalties: %s.", title, penalties.Describe()),
		map[string]any{"penalties": penalties.Describe()}, AudienceAll)
	err := c.saveLocked(ctx)
	c.unlock()
	if err != nil {
		m.mu.Lock()
		delete(m.cases, id)
		m.mu.Unlock()
		return nil, err
	}

	if m.deps.Metrics != nil {
		m.deps.Metrics.CasesFiled.Inc()
		m.deps.Metrics.CasesOpen.Inc()
	}
	if m.deps.Audit != nil {
		m.deps.Audit.Emit(ctx, "case.filed", plaintiff, id.String(), map[string]string{
			"defense": defense.String(),
			"title":   title,
		})
	}
	return c, nil
}

// Get resolves an active case.
func (m *Manager) Get(id domain.CaseID) (*Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cases[id]; ok {
		return c, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "case not found: %s", id)
}

// List snapshots the active registry.
func (m *Manager) List() []*Case {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Case, 0, len(m.cases))
	for _, c := range m.cases {
		out = append(out, c)
	}
	return out
}

// CloseCase resolves a case with a verdict. A guilty verdict executes the
// penalty set. The case is archived to the blob store, its evidence blobs and
// persisted document deleted, and it leaves the active registry.
func (m *Manager) CloseCase(ctx context.Context, id domain.CaseID, guilty bool, verdict string) error {
	c, err := m.Get(id)
	if err != nil {
		return err
	}

	c.lock()
	c.NoTick = true
	c.Stage = StageClosed
	c.Status = verdict
	if guilty {
		if err := c.executePunishmentsLocked(ctx); err != nil {
			c.deps.Logger.ErrorContext(ctx, "punishment execution incomplete", "case_id", id, "error", err)
		}
	}
	c.recordAndAnnounceLocked(ctx, EventCaseClosed, "",
		fmt.Sprintf("Case closed: %s", verdict), map[string]any{
			"guilty":  guilty,
			"verdict": verdict,
		}, AudienceAll)
	m.archiveLocked(ctx, c)
	c.deleteEvidenceBlobsLocked(ctx)
	c.unlock()

	if err := m.deps.Store.Delete(ctx, docstore.CollectionCases, id.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete case document")
	}

	m.mu.Lock()
	delete(m.cases, id)
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.CasesClosed.Inc()
		m.deps.Metrics.CasesOpen.Dec()
	}
	if m.deps.Audit != nil {
		m.deps.Audit.Emit(ctx, "case.closed", "", id.String(), map[string]string{
			"guilty":  fmt.Sprintf("%t", guilty),
			"verdict": verdict,
		})
	}
	return nil
}

// archiveLocked writes a retention zip (full case document plus a standalone
// event log) to the blob store. Archive failures are logged; close proceeds.
func (m *Manager) archiveLocked(ctx context.Context, c *Case) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	caseDoc, err := json.MarshalIndent(c, "", "  ")
	if err == nil {
		if f, ferr := zw.Create("case.json"); ferr == nil {
			_, _ = f.Write(caseDoc)
		}
	}
	eventDoc, err := json.MarshalIndent(c.EventLog, "", "  ")
	if err == nil {
		if f, ferr := zw.Create("event_log.json"); ferr == nil {
			_, _ = f.Write(eventDoc)
		}
	}
	if err := zw.Close(); err != nil {
		m.deps.Logger.WarnContext(ctx, "case archive encoding failed", "case_id", c.ID, "error", err)
		return
	}

	blobID, err := m.deps.Blobs.Put(ctx, c.ID.String()+".zip", buf.Bytes())
	if err != nil {
		m.deps.Logger.WarnContext(ctx, "case archive upload failed", "case_id", c.ID, "error", err)
		return
	}
	m.deps.Logger.InfoContext(ctx, "case archived", "case_id", c.ID, "blob_id", blobID)
}

// Tick heartbeats every active case. Per-case failures are logged and do
// not stop the sweep.
func (m *Manager) Tick(ctx context.Context) error {
	for _, c := range m.List() {
		if err := c.Tick(ctx); err != nil {
			m.deps.Logger.ErrorContext(ctx, "case tick failed", "case_id", c.ID, "error", err)
		}
	}
	return nil
}

// partyToActiveCase reports whether the user is plaintiff or defense of any
// active case, which disqualifies them from jury duty everywhere. Parties are
// immutable after filing, so reading them needs no per-case lock.
func (m *Manager) partyToActiveCase(user domain.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cases {
		if c.Plaintiff == user || c.Defense == user {
			return true
		}
	}
	return false
}
