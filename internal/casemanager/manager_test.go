package casemanager_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

type ManagerSuite struct {
	suite.Suite
	env *env
	ctx context.Context
}

func (s *ManagerSuite) SetupTest() {
	s.env = newEnv(s.T())
	s.ctx = context.Background()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

// newManager builds a second manager over the suite's stores, optionally with
// a custom policy. Used for rehydration and policy-variant tests.
func (s *ManagerSuite) newManager(policy casemanager.Policy) *casemanager.Manager {
	m, err := casemanager.NewManager(casemanager.Deps{
		Store:     s.env.store,
		Blobs:     s.env.blobs,
		Directory: s.env.dir,
		Notifier:  s.env.rec,
		Warden:    s.env.warden,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.NewWith(prometheus.NewRegistry()),
		Clock:     s.env.clock.Now,
		RNG:       rand.New(rand.NewSource(11)),
		Policy:    policy,
	})
	s.Require().NoError(err)
	return m
}

func (s *ManagerSuite) TestFileCaseValidation() {
	penalties := casemanager.PenaltySet{&casemanager.Warning{Note: "n"}}

	tests := []struct {
		name      string
		plaintiff domain.UserID
		defense   domain.UserID
		penalties casemanager.PenaltySet
	}{
		{"missing plaintiff", "", defenseID, penalties},
		{"missing defense", plaintiffID, "", penalties},
		{"self-filed case", plaintiffID, plaintiffID, penalties},
		{"empty penalty set", plaintiffID, defenseID, nil},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.env.manager.FileCase(s.ctx, tt.plaintiff, tt.defense, "t", "d", tt.penalties)
			s.Require().Error(err)
			s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
		})
	}
}

func (s *ManagerSuite) TestFileCase() {
	c := s.env.fileCase(s.T())

	s.Run("the case opens in jury selection", func() {
		s.Equal(casemanager.StageJurySelection, c.Stage)
		s.Equal(casemanager.StatusJurySelection, c.Status)
		s.Equal(s.env.clock.Now(), c.Created)
	})

	s.Run("parties get anonymization labels", func() {
		s.Equal("The Plaintiff", c.Anonymization[plaintiffID])
		s.Equal("The Defense", c.Anonymization[defenseID])
		s.Equal("Plaintiff One", c.KnownUsers[plaintiffID])
	})

	s.Run("the registry resolves the new case", func() {
		got, err := s.env.manager.Get(c.ID)
		s.Require().NoError(err)
		s.Same(c, got)
		s.Len(s.env.manager.List(), 1)
	})

	s.Run("the document is persisted", func() {
		doc, err := s.env.store.Get(s.ctx, docstore.CollectionCases, c.ID.String())
		s.Require().NoError(err)
		s.NotEmpty(doc)
	})
}

func (s *ManagerSuite) TestGetUnknownCase() {
	_, err := s.env.manager.Get("2026-01-01-XXXX")
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ManagerSuite) TestCloseCaseGuilty() {
	penalties := casemanager.PenaltySet{
		&casemanager.Warning{Note: "first offense"},
		&casemanager.Prison{Seconds: 0},
		&casemanager.PermanentBan{Note: "repeat harassment"},
	}
	c, err := s.env.manager.FileCase(s.ctx, plaintiffID, defenseID, "Harassment", "d", penalties)
	s.Require().NoError(err)
	_, err = c.SubmitEvidence(s.ctx, plaintiffID, "proof.txt", []byte("proof"))
	s.Require().NoError(err)

	s.Require().NoError(s.env.manager.CloseCase(s.ctx, c.ID, true, "Guilty"))

	s.Run("the prison sentence becomes a stay warrant", func() {
		issued := s.env.warden.issued()
		s.Require().Len(issued, 1)
		s.Equal(defenseID, issued[0].User)
		s.Equal("case", issued[0].Category)
		s.Equal(plaintiffID, issued[0].Author)
		s.Equal(int64(-1), issued[0].LenSeconds)
	})

	s.Run("the ban reaches the platform", func() {
		s.True(s.env.dir.Banned(defenseID))
	})

	s.Run("the case is archived and torn down", func() {
		// Evidence blob deleted, retention archive written.
		s.Equal(1, s.env.blobs.Len())

		_, err := s.env.store.Get(s.ctx, docstore.CollectionCases, c.ID.String())
		s.Require().Error(err)

		_, err = s.env.manager.Get(c.ID)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
		s.Equal(casemanager.StageClosed, c.Stage)
		s.Equal("Guilty", c.Status)
	})
}

func (s *ManagerSuite) TestCloseCaseNotGuilty() {
	c := s.env.fileCase(s.T())
	s.Require().NoError(s.env.manager.CloseCase(s.ctx, c.ID, false, "Not Guilty"))

	s.Empty(s.env.warden.issued())
	s.False(s.env.dir.Banned(defenseID))
	_, err := s.env.manager.Get(c.ID)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ManagerSuite) TestClosedCaseRejectsLateWrites() {
	s.env.seedCandidates(10)
	c := s.env.fileCase(s.T())
	s.env.seatJury(s.T(), c)
	juror := c.JuryPool[0]
	ev, err := c.SubmitEvidence(s.ctx, plaintiffID, "exhibit.txt", []byte("exhibit"))
	s.Require().NoError(err)

	// A handler can hold this pointer across the close.
	s.Require().NoError(s.env.manager.CloseCase(s.ctx, c.ID, false, "Not Guilty"))

	calls := []struct {
		name string
		err  error
	}{
		{"statement", c.AddStatement(s.ctx, plaintiffID, "late")},
		{"juror chat", c.AddJurorChat(s.ctx, juror, "late")},
		{"seal", c.SealEvidence(s.ctx, plaintiffID, ev.ID, "late")},
		{"certify", c.CertifyEvidence(s.ctx, plaintiffID, ev.ID)},
		{"decline invite", c.DeclineJuryInvite(s.ctx, juror)},
		{"leave jury", c.LeaveJury(s.ctx, juror)},
		{"accept plea", c.AcceptPleaDeal(s.ctx, defenseID)},
		{"decline plea", c.DeclinePleaDeal(s.ctx, defenseID)},
	}
	for _, call := range calls {
		s.Run(call.name, func() {
			s.Require().Error(call.err)
			s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(call.err))
		})
	}

	// None of the rejected writes may resurrect the deleted document.
	_, err = s.env.store.Get(s.ctx, docstore.CollectionCases, c.ID.String())
	s.Require().ErrorIs(err, docstore.ErrNotFound)
}

func (s *ManagerSuite) TestLoadRehydratesRegistry() {
	c := s.env.fileCase(s.T())
	_, err := c.FileMotion(s.ctx, plaintiffID, &casemanager.AdjustPenaltyBody{
		Penalties: casemanager.PenaltySet{&casemanager.Prison{Seconds: 3600}},
	})
	s.Require().NoError(err)

	// A document that cannot decode must not block the rest of the load.
	s.Require().NoError(s.env.store.Save(s.ctx, docstore.CollectionCases, "broken", []byte("{not json")))

	m2 := s.newManager(casemanager.DefaultPolicy())
	s.Require().NoError(m2.Load(s.ctx))

	s.Require().Len(m2.List(), 1)
	got, err := m2.Get(c.ID)
	s.Require().NoError(err)
	s.Equal(c.Title, got.Title)
	s.Equal(c.Penalties.Describe(), got.Penalties.Describe())
	s.Require().Len(got.MotionQueue, 1)
	s.Equal(casemanager.MotionAdjustPenalty, got.MotionQueue[0].Body.Kind())

	// The rehydrated case is live: operations work against it.
	s.Require().NoError(got.AddStatement(s.ctx, plaintiffID, "still here"))
}

func (s *ManagerSuite) TestJurorEligibility() {
	policy := casemanager.DefaultPolicy()
	policy.DisqualifyingRoles = []string{"staff"}
	manager := s.newManager(policy)

	now := s.env.clock.Now()
	eligible := func(id domain.UserID) {
		s.env.dir.Upsert(directoryMember(id, now, 500, nil))
	}
	eligible("good-1")
	eligible("good-2")
	s.env.dir.Upsert(directoryMember("quiet", now, 50, nil))
	s.env.dir.Upsert(directoryMember("stale", now.Add(-30*24*time.Hour), 500, nil))
	s.env.dir.Upsert(directoryMember("staffer", now, 500, []string{"staff"}))

	admin := directoryMember("admin", now, 500, nil)
	admin.Administrator = true
	s.env.dir.Upsert(admin)

	banhammer := directoryMember("banhammer", now, 500, nil)
	banhammer.CanBanMembers = true
	s.env.dir.Upsert(banhammer)

	jurybanned := directoryMember("jurybanned", now, 500, nil)
	jurybanned.JuryBanned = true
	s.env.dir.Upsert(jurybanned)

	// Parties to any active case are disqualified everywhere.
	eligible("other-plaintiff")
	eligible("other-defense")
	_, err := manager.FileCase(s.ctx, "other-plaintiff", "other-defense", "Other", "d", casemanager.PenaltySet{&casemanager.Warning{Note: "n"}})
	s.Require().NoError(err)

	c, err := manager.FileCase(s.ctx, plaintiffID, defenseID, "Main", "d", casemanager.PenaltySet{&casemanager.Warning{Note: "n"}})
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		s.Require().NoError(c.Tick(s.ctx))
	}

	s.ElementsMatch([]domain.UserID{"good-1", "good-2"}, c.JuryInvites)
}

func directoryMember(id domain.UserID, lastActive time.Time, messages int, roles []string) directory.Member {
	return directory.Member{
		ID:           id,
		DisplayName:  id.String(),
		Roles:        roles,
		LastActive:   lastActive,
		MessageCount: messages,
	}
}
