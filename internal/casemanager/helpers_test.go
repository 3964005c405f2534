package casemanager_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/blob"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/testutil"
)

const (
	plaintiffID = domain.UserID("plaintiff-1")
	defenseID   = domain.UserID("defense-1")
)

// issuedWarrant records one call into the stub warrant issuer.
type issuedWarrant struct {
	User        domain.UserID
	Category    string
	Description string
	Author      domain.UserID
	LenSeconds  int64
}

type stubWarden struct {
	mu       sync.Mutex
	warrants []issuedWarrant
	failWith error
}

func (s *stubWarden) NewWarrant(_ context.Context, user domain.UserID, category, description string, author domain.UserID, lenSeconds int64) (domain.WarrantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	s.warrants = append(s.warrants, issuedWarrant{
		User:        user,
		Category:    category,
		Description: description,
		Author:      author,
		LenSeconds:  lenSeconds,
	})
	return domain.WarrantID(fmt.Sprintf("warrant-%d", len(s.warrants))), nil
}

func (s *stubWarden) issued() []issuedWarrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]issuedWarrant(nil), s.warrants...)
}

type env struct {
	clock   *testutil.Clock
	store   *docstore.Memory
	blobs   *blob.Memory
	dir     *directory.Memory
	rec     *notify.Recorder
	warden  *stubWarden
	manager *casemanager.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		clock:  testutil.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		store:  docstore.NewMemory(),
		blobs:  blob.NewMemory(),
		dir:    directory.NewMemory(),
		rec:    notify.NewRecorder(),
		warden: &stubWarden{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := casemanager.NewManager(casemanager.Deps{
		Store:     e.store,
		Blobs:     e.blobs,
		Directory: e.dir,
		Notifier:  e.rec,
		Warden:    e.warden,
		Logger:    logger,
		Metrics:   metrics.NewWith(prometheus.NewRegistry()),
		Clock:     e.clock.Now,
		RNG:       rand.New(rand.NewSource(7)),
		Policy:    casemanager.DefaultPolicy(),
	})
	require.NoError(t, err)
	e.manager = manager

	e.addMember(plaintiffID, "Plaintiff One")
	e.addMember(defenseID, "Defense One")
	return e
}

// addMember stages an active, jury-eligible community member.
func (e *env) addMember(id domain.UserID, name string) {
	e.dir.Upsert(directory.Member{
		ID:           id,
		DisplayName:  name,
		LastActive:   e.clock.Now(),
		MessageCount: 500,
	})
}

// seedCandidates stages n jury-eligible members named candidate-01..n.
func (e *env) seedCandidates(n int) []domain.UserID {
	ids := make([]domain.UserID, 0, n)
	for i := 1; i <= n; i++ {
		id := domain.UserID(fmt.Sprintf("candidate-%02d", i))
		e.addMember(id, string(id))
		ids = append(ids, id)
	}
	return ids
}

// fileCase files a standard case with a warning penalty.
func (e *env) fileCase(t *testing.T) *casemanager.Case {
	t.Helper()
	c, err := e.manager.FileCase(context.Background(), plaintiffID, defenseID,
		"Defamation", "Spreading falsehoods in general chat.",
		casemanager.PenaltySet{&casemanager.Warning{Note: "formal warning"}})
	require.NoError(t, err)
	return c
}

// seatJury ticks until the jury floor is met, accepting invitations as they
// arrive.
// Fails the test if the floor is not reached within a bounded number of
// ticks.
func (e *env) seatJury(t *testing.T, c *casemanager.Case) {
	t.Helper()
	ctx := context.Background()
	floor := casemanager.DefaultPolicy().JuryFloor
	for i := 0; i < 20; i++ {
		if len(c.JuryPool) >= floor {
			return
		}
		require.NoError(t, c.Tick(ctx))
		for _, invited := range append([]domain.UserID(nil), c.JuryInvites...) {
			if len(c.JuryPool) >= floor {
				break
			}
			require.NoError(t, c.JoinJury(ctx, invited))
		}
	}
	t.Fatalf("jury floor not reached after 20 ticks: pool=%d", len(c.JuryPool))
}
