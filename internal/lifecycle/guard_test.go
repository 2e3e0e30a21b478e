package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestCanTransition(t *testing.T) {
	for _, family := range []Family{FamilyOffer, FamilyOrder} {
		require.True(t, CanTransition(family, StatusDraft, StatusAccepted))
		require.True(t, CanTransition(family, StatusDraft, StatusCancelled))
		require.True(t, CanTransition(family, StatusAccepted, StatusConverted))
		require.True(t, CanTransition(family, StatusAccepted, StatusCancelled))

		require.False(t, CanTransition(family, StatusDraft, StatusConverted))
		require.False(t, CanTransition(family, StatusAccepted, StatusDraft))
		require.False(t, CanTransition(family, StatusConverted, StatusDraft))
		require.False(t, CanTransition(family, StatusConverted, StatusCancelled))
		require.False(t, CanTransition(family, StatusCancelled, StatusDraft))
		require.False(t, CanTransition(family, StatusCancelled, StatusAccepted))
	}
}

func TestEnsureTransitionNamesStates(t *testing.T) {
	err := EnsureTransition(FamilyOffer, StatusConverted, StatusAccepted)
	require.Error(t, err)
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
	require.Contains(t, err.Error(), "CONVERTED")
	require.Contains(t, err.Error(), "ACCEPTED")
}

func TestEnsureMutable(t *testing.T) {
	require.NoError(t, EnsureMutable(FamilyOffer, StatusDraft))

	for _, status := range []Status{StatusAccepted, StatusConverted, StatusCancelled} {
		err := EnsureMutable(FamilyOffer, status)
		require.Error(t, err)
		require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
		require.Contains(t, err.Error(), string(status))
	}
}

func TestEnsureConvertible(t *testing.T) {
	require.NoError(t, EnsureConvertible(FamilyOffer, StatusAccepted))

	for _, status := range []Status{StatusDraft, StatusConverted, StatusCancelled} {
		err := EnsureConvertible(FamilyOffer, status)
		require.Error(t, err)
		require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
		require.Contains(t, err.Error(), string(status))
	}
}
