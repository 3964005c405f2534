package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

func TestNewCaseID(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	filed := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	id := domain.NewCaseID(filed, rng)
	require.Regexp(t, `^2026-08-31-[A-HJKMNP-Z]{4}$`, id.String())
	require.False(t, id.IsZero())
}

func TestNewMotionID(t *testing.T) {
	require.EqualValues(t, "2026-08-31-KQZR-M1", domain.NewMotionID("2026-08-31-KQZR", 1))
	require.EqualValues(t, "2026-08-31-KQZR-M12", domain.NewMotionID("2026-08-31-KQZR", 12))
	require.True(t, domain.MotionID("").IsZero())
}

func TestNewEvidenceID(t *testing.T) {
	caseID := domain.CaseID("2026-08-31-KQZR")
	require.EqualValues(t, "2026-08-31-KQZR-P1", domain.NewEvidenceID(caseID, domain.RolePlaintiff, 1))
	require.EqualValues(t, "2026-08-31-KQZR-D2", domain.NewEvidenceID(caseID, domain.RoleDefense, 2))
	require.EqualValues(t, "2026-08-31-KQZR-J3", domain.NewEvidenceID(caseID, domain.RoleJuror, 3))
	require.EqualValues(t, "2026-08-31-KQZR-N4", domain.NewEvidenceID(caseID, domain.RoleNeither, 4))
}
