package casemanager_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
)

func TestPenaltySetDescribe(t *testing.T) {
	require.Equal(t, "none", casemanager.PenaltySet{}.Describe())

	set := casemanager.PenaltySet{
		&casemanager.Warning{Note: "be nice"},
		&casemanager.Prison{Seconds: 0},
		&casemanager.Prison{Seconds: 3600},
	}
	require.Equal(t, "Warning: be nice; Prison: indefinite; Prison: 1h0m0s", set.Describe())
}

func TestPenaltySetRejectsUnknownKind(t *testing.T) {
	var set casemanager.PenaltySet
	err := json.Unmarshal([]byte(`[{"kind":"exile","payload":{}}]`), &set)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exile")
}

func TestDecodeMotionBody(t *testing.T) {
	body, err := casemanager.DecodeMotionBody(casemanager.MotionStatement, []byte(`{"text":"hi"}`))
	require.NoError(t, err)
	stmt, ok := body.(*casemanager.StatementBody)
	require.True(t, ok)
	require.Equal(t, "hi", stmt.Text)

	_, err = casemanager.DecodeMotionBody("telex", nil)
	require.Error(t, err)
}
