// Package domain holds the typed identifiers shared by every service. IDs are
// plain strings under the hood (platform user IDs are snowflakes, case IDs are
// human-readable) but distinct types keep them from being swapped at call sites.
package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// UserID is a chat-platform user identifier (snowflake, kept as a string).
type UserID string

func (u UserID) String() string { return string(u) }
func (u UserID) IsZero() bool   { return u == "" }

// CaseID is a human-readable case identifier: filing date plus a random
// suffix, e.g. "2026-08-31-KQZR". Unique among active cases.
type CaseID string

func (c CaseID) String() string { return string(c) }
func (c CaseID) IsZero() bool   { return c == "" }

const caseSuffixAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ"

// NewCaseID generates a candidate case ID for the given filing time. Callers
// must check uniqueness against the active registry and retry on collision.
func NewCaseID(now time.Time, rng *rand.Rand) CaseID {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = caseSuffixAlphabet[rng.Intn(len(caseSuffixAlphabet))]
	}
	return CaseID(fmt.Sprintf("%s-%s", now.Format("2006-01-02"), suffix))
}

// MotionID identifies a motion within a case: "{caseID}-M{n}". Motion numbers
// are monotonically increasing per case and never reused.
type MotionID string

func (m MotionID) String() string { return string(m) }
func (m MotionID) IsZero() bool   { return m == "" }

// NewMotionID builds the ID for the n-th motion filed on a case.
func NewMotionID(caseID CaseID, n int) MotionID {
	return MotionID(fmt.Sprintf("%s-M%d", caseID, n))
}

// EvidenceID identifies evidence within a case: "{caseID}-{role}{n}" where
// role tags the submitter as P(laintiff), D(efense), J(uror) or N(either).
type EvidenceID string

func (e EvidenceID) String() string { return string(e) }

// NewEvidenceID builds the ID for the n-th piece of evidence on a case.
func NewEvidenceID(caseID CaseID, role SubmitterRole, n int) EvidenceID {
	return EvidenceID(fmt.Sprintf("%s-%s%d", caseID, role, n))
}

// SubmitterRole tags evidence by the submitter's relation to the case.
type SubmitterRole string

const (
	RolePlaintiff SubmitterRole = "P"
	RoleDefense   SubmitterRole = "D"
	RoleJuror     SubmitterRole = "J"
	RoleNeither   SubmitterRole = "N"
)

// WarrantID identifies a single warrant in the warden ledger.
type WarrantID string

func (w WarrantID) String() string { return string(w) }
func (w WarrantID) IsZero() bool   { return w == "" }
