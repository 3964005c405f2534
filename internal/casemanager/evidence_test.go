package casemanager_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
)

type EvidenceSuite struct {
	suite.Suite
	env *env
	c   *casemanager.Case
	ctx context.Context
}

func (s *EvidenceSuite) SetupTest() {
	s.env = newEnv(s.T())
	s.ctx = context.Background()
	s.env.seedCandidates(10)
	s.c = s.env.fileCase(s.T())
	s.env.seatJury(s.T(), s.c)
}

func TestEvidenceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceSuite))
}

func (s *EvidenceSuite) TestSubmissionTagsRole() {
	p, err := s.c.SubmitEvidence(s.ctx, plaintiffID, "chatlog.txt", []byte("log"))
	s.Require().NoError(err)
	d, err := s.c.SubmitEvidence(s.ctx, defenseID, "alibi.png", []byte("img"))
	s.Require().NoError(err)
	j, err := s.c.SubmitEvidence(s.ctx, s.c.JuryPool[0], "context.txt", []byte("ctx"))
	s.Require().NoError(err)
	n, err := s.c.SubmitEvidence(s.ctx, "candidate-09", "bystander.txt", []byte("b"))
	s.Require().NoError(err)

	s.Equal(domain.NewEvidenceID(s.c.ID, domain.RolePlaintiff, 1), p.ID)
	s.Equal(domain.NewEvidenceID(s.c.ID, domain.RoleDefense, 2), d.ID)
	s.Equal(domain.NewEvidenceID(s.c.ID, domain.RoleJuror, 3), j.ID)
	s.Equal(domain.NewEvidenceID(s.c.ID, domain.RoleNeither, 4), n.ID)

	s.Equal(4, s.env.blobs.Len())
}

func (s *EvidenceSuite) TestSealing() {
	ev, err := s.c.SubmitEvidence(s.ctx, plaintiffID, "sensitive.txt", []byte("secret"))
	s.Require().NoError(err)
	open, err := s.c.SubmitEvidence(s.ctx, plaintiffID, "public.txt", []byte("fine"))
	s.Require().NoError(err)

	s.Run("outsiders may not seal", func() {
		err := s.c.SealEvidence(s.ctx, "candidate-09", ev.ID, "privacy")
		s.Require().Error(err)
		s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	s.Run("sealing an unknown ID fails", func() {
		err := s.c.SealEvidence(s.ctx, plaintiffID, "nope", "privacy")
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	s.Run("sealed evidence is hidden from outsiders", func() {
		s.Require().NoError(s.c.SealEvidence(s.ctx, defenseID, ev.ID, "contains personal data"))

		visible := s.c.ListEvidence("candidate-09")
		s.Require().Len(visible, 1)
		s.Equal(open.ID, visible[0].ID)
	})

	s.Run("parties and jurors still see sealed evidence", func() {
		s.Len(s.c.ListEvidence(plaintiffID), 2)
		s.Len(s.c.ListEvidence(s.c.JuryPool[0]), 2)
	})
}

func (s *EvidenceSuite) TestCertification() {
	ev, err := s.c.SubmitEvidence(s.ctx, defenseID, "receipt.pdf", []byte("pdf"))
	s.Require().NoError(err)

	s.Run("jurors may not certify", func() {
		err := s.c.CertifyEvidence(s.ctx, s.c.JuryPool[0], ev.ID)
		s.Require().Error(err)
		s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	s.Run("parties certify", func() {
		s.Require().NoError(s.c.CertifyEvidence(s.ctx, plaintiffID, ev.ID))
		s.True(s.c.ListEvidence(plaintiffID)[0].Certified)
	})
}
