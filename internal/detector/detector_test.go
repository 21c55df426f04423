package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/matchwatch/internal/domain"
)

func ptr(s string) *string { return &s }

func TestEvaluateAbsentRecord(t *testing.T) {
	decision := Evaluate(ptr("m1"), nil)
	require.Nil(t, decision.Update)
	require.Nil(t, decision.Emit)

	decision = Evaluate(nil, nil)
	require.Nil(t, decision.Update)
	require.Nil(t, decision.Emit)
}

func TestEvaluateUnchangedRecord(t *testing.T) {
	for _, eligible := range []bool{true, false} {
		fetched := &domain.ActivityRecord{RecordID: "m1", EligibleForNotice: eligible}

		decision := Evaluate(ptr("m1"), fetched)
		require.Nil(t, decision.Update)
		require.Nil(t, decision.Emit)
	}
}

func TestEvaluateNewEligibleRecord(t *testing.T) {
	fetched := &domain.ActivityRecord{RecordID: "m2", IdentityKey: "foo", EligibleForNotice: true}

	decision := Evaluate(ptr("m1"), fetched)
	require.NotNil(t, decision.Update)
	require.Equal(t, "m2", *decision.Update)
	require.Same(t, fetched, decision.Emit)
}

func TestEvaluateNewIneligibleRecord(t *testing.T) {
	fetched := &domain.ActivityRecord{RecordID: "m3", EligibleForNotice: false}

	decision := Evaluate(ptr("m1"), fetched)
	require.NotNil(t, decision.Update)
	require.Equal(t, "m3", *decision.Update)
	require.Nil(t, decision.Emit)
}

func TestEvaluateFirstObservation(t *testing.T) {
	fetched := &domain.ActivityRecord{RecordID: "m1", EligibleForNotice: true}

	decision := Evaluate(nil, fetched)
	require.Equal(t, "m1", *decision.Update)
	require.NotNil(t, decision.Emit)
}

func TestEvaluateUpdateDoesNotAliasRecord(t *testing.T) {
	fetched := &domain.ActivityRecord{RecordID: "m2", EligibleForNotice: true}

	decision := Evaluate(ptr("m1"), fetched)
	fetched.RecordID = "mutated"
	require.Equal(t, "m2", *decision.Update)
}
