package exeatrequest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNext_MedicalBranch(t *testing.T) {
	got, err := Next(StatusPending, true)
	require.NoError(t, err)
	require.Equal(t, StatusCMDReview, got)

	got, err = Next(StatusPending, false)
	require.NoError(t, err)
	require.Equal(t, StatusDeputyDeanReview, got)
}

func TestNext_WalksFullPipeline(t *testing.T) {
	order := []Status{
		StatusCMDReview,
		StatusDeputyDeanReview,
		StatusParentConsent,
		StatusDeanReview,
		StatusHostelSignout,
		StatusSecuritySignout,
		StatusSecuritySignin,
		StatusHostelSignin,
		StatusCompleted,
	}

	current := StatusPending
	for _, want := range order[1:] {
		next, err := Next(current, false)
		require.NoError(t, err)
		if current == StatusPending {
			require.Equal(t, StatusDeputyDeanReview, next)
		} else {
			require.Equal(t, want, next, "from %s", current)
		}
		current = next
	}
	require.Equal(t, StatusCompleted, current)
}

func TestNext_TerminalStates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusRejected} {
		_, err := Next(s, false)
		require.ErrorIs(t, err, ErrTerminalState, "state %s", s)
	}
}

func TestNext_UnknownState(t *testing.T) {
	_, err := Next(Status("limbo"), false)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReject_FromAnyNonTerminalStage(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusCMDReview, StatusDeputyDeanReview, StatusParentConsent,
		StatusDeanReview, StatusHostelSignout, StatusSecuritySignout,
		StatusSecuritySignin, StatusHostelSignin,
	} {
		r := Hydrate(1, 2, "travel", false, ContactEmail, "p@x.com", "", s, time.Time{}, time.Time{})
		rejected, err := r.Reject()
		require.NoError(t, err, "state %s", s)
		require.Equal(t, StatusRejected, rejected.Status())
	}
}

func TestReject_TerminalIsError(t *testing.T) {
	r := Hydrate(1, 2, "travel", false, ContactEmail, "p@x.com", "", StatusRejected, time.Time{}, time.Time{})
	_, err := r.Reject()
	require.ErrorIs(t, err, ErrTerminalState)
}
