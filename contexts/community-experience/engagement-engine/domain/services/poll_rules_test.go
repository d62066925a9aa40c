package services

import (
	"errors"
	"testing"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
)

var rulesNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func samplePoll(allowMultiple bool) entities.Poll {
	return entities.Poll{
		PollID:        "poll_1",
		PostID:        "post_1",
		Question:      "Where next?",
		AllowMultiple: allowMultiple,
		Options: []entities.PollOption{
			{OptionID: "opt_a", Label: "Lisbon", VoteCount: 3},
			{OptionID: "opt_b", Label: "Oslo", VoteCount: 1},
			{OptionID: "opt_c", Label: "Quito", VoteCount: 0},
		},
		TotalVotes: 4,
		ExpiresAt:  rulesNow.Add(24 * time.Hour),
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		votes, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 2, 100},
		{-1, 4, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.votes, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d,%d): expected %d, got %d", tc.votes, tc.total, tc.want, got)
		}
	}
}

func TestApplySelectionSingleChoiceReplaces(t *testing.T) {
	poll := samplePoll(false)
	pending, err := ApplySelection(poll, entities.NewBallot("opt_a"), "opt_b", rulesNow)
	if err != nil {
		t.Fatalf("apply selection failed: %v", err)
	}
	if !pending.Equal(entities.Ballot{"opt_b"}) {
		t.Fatalf("expected only opt_b, got %v", pending)
	}
}

func TestApplySelectionMultiChoiceToggles(t *testing.T) {
	poll := samplePoll(true)
	pending, err := ApplySelection(poll, entities.NewBallot("opt_a"), "opt_c", rulesNow)
	if err != nil {
		t.Fatalf("apply selection failed: %v", err)
	}
	if !pending.Equal(entities.Ballot{"opt_a", "opt_c"}) {
		t.Fatalf("expected opt_a and opt_c, got %v", pending)
	}
	pending, err = ApplySelection(poll, pending, "opt_a", rulesNow)
	if err != nil {
		t.Fatalf("apply selection failed: %v", err)
	}
	if !pending.Equal(entities.Ballot{"opt_c"}) {
		t.Fatalf("expected opt_a toggled off, got %v", pending)
	}
}

func TestApplySelectionRejectsExpiredAndUnknown(t *testing.T) {
	poll := samplePoll(false)
	if _, err := ApplySelection(poll, nil, "opt_x", rulesNow); !errors.Is(err, domainerrors.ErrUnknownOption) {
		t.Fatalf("expected unknown option, got %v", err)
	}
	if _, err := ApplySelection(poll, nil, "opt_a", poll.ExpiresAt); !errors.Is(err, domainerrors.ErrPollExpired) {
		t.Fatalf("expected poll expired, got %v", err)
	}
}

func TestValidateBallot(t *testing.T) {
	single := samplePoll(false)
	if err := ValidateBallot(single, nil, rulesNow); !errors.Is(err, domainerrors.ErrEmptyBallot) {
		t.Fatalf("expected empty ballot, got %v", err)
	}
	if err := ValidateBallot(single, entities.NewBallot("opt_a", "opt_b"), rulesNow); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected single-choice rejection, got %v", err)
	}
	if err := ValidateBallot(samplePoll(true), entities.NewBallot("opt_a", "opt_b"), rulesNow); err != nil {
		t.Fatalf("multi-choice ballot should pass, got %v", err)
	}
}

func TestBuildPollViewDerivesPercentages(t *testing.T) {
	poll := samplePoll(false)
	poll.UserSelections = entities.NewBallot("opt_a")
	view := BuildPollView(poll, poll.UserSelections, false, false, false, rulesNow)

	if view.State != entities.PollStateVoted || !view.ShowResults || !view.CanRevert {
		t.Fatalf("unexpected flags %+v", view)
	}
	got := []int{view.Options[0].Percentage, view.Options[1].Percentage, view.Options[2].Percentage}
	want := []int{75, 25, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected percentages %v, got %v", want, got)
		}
	}
	if !view.Options[0].Selected || !view.Options[0].Submitted {
		t.Fatal("opt_a should be selected and submitted")
	}

	editing := BuildPollView(poll, poll.UserSelections, true, false, false, rulesNow)
	if editing.ShowResults || editing.CanRevert {
		t.Fatal("editing hides results and disables revert")
	}

	expired := BuildPollView(poll, nil, true, false, false, poll.ExpiresAt.Add(time.Second))
	if !expired.ShowResults || expired.CanRevert || expired.State != entities.PollStateExpired {
		t.Fatalf("expired poll should show results without revert, got %+v", expired)
	}
}
