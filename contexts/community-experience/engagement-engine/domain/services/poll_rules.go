package services

import (
	"math"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
)

// Percentage is round(voteCount/totalVotes*100) clamped to [0,100]; zero when
// nobody has voted.
func Percentage(voteCount int, totalVotes int) int {
	if totalVotes <= 0 || voteCount <= 0 {
		return 0
	}
	value := int(math.Round(float64(voteCount) / float64(totalVotes) * 100))
	if value > 100 {
		return 100
	}
	return value
}

// ApplySelection returns the pending ballot after the viewer taps optionID.
func ApplySelection(poll entities.Poll, pending entities.Ballot, optionID string, now time.Time) (entities.Ballot, error) {
	if poll.IsExpired(now) {
		return nil, domainerrors.ErrPollExpired
	}
	if !poll.HasOption(optionID) {
		return nil, domainerrors.ErrUnknownOption
	}
	if poll.AllowMultiple {
		return pending.Toggle(optionID), nil
	}
	return entities.NewBallot(optionID), nil
}

// ValidateBallot checks a ballot before submission.
func ValidateBallot(poll entities.Poll, ballot entities.Ballot, now time.Time) error {
	if poll.IsExpired(now) {
		return domainerrors.ErrPollExpired
	}
	if len(ballot) == 0 {
		return domainerrors.ErrEmptyBallot
	}
	if !poll.AllowMultiple && len(ballot) > 1 {
		return domainerrors.ErrInvalidInput
	}
	for _, optionID := range ballot {
		if !poll.HasOption(optionID) {
			return domainerrors.ErrUnknownOption
		}
	}
	return nil
}

// ShowResults is true once the viewer voted or the poll closed, unless the
// viewer reverted to edit a submitted ballot.
func ShowResults(poll entities.Poll, editing bool, now time.Time) bool {
	if poll.IsExpired(now) {
		return true
	}
	return poll.HasVoted() && !editing
}

func CanRevert(poll entities.Poll, editing bool, now time.Time) bool {
	return poll.HasVoted() && !poll.IsExpired(now) && !editing
}

// BuildPollView derives the presentation snapshot. Percentages are computed
// here on every call.
func BuildPollView(
	poll entities.Poll,
	pending entities.Ballot,
	editing bool,
	submitting bool,
	tallyStale bool,
	now time.Time,
) entities.PollView {
	view := entities.PollView{
		PollID:        poll.PollID,
		PostID:        poll.PostID,
		Question:      poll.Question,
		AllowMultiple: poll.AllowMultiple,
		ExpiresAt:     poll.ExpiresAt,
		State:         poll.State(now),
		TotalVotes:    poll.TotalVotes,
		Options:       make([]entities.PollOptionView, 0, len(poll.Options)),
		Pending:       pending.Clone(),
		Submitted:     poll.UserSelections.Clone(),
		ShowResults:   ShowResults(poll, editing, now),
		CanRevert:     CanRevert(poll, editing, now),
		Submitting:    submitting,
		TallyStale:    tallyStale,
	}
	for _, option := range poll.Options {
		view.Options = append(view.Options, entities.PollOptionView{
			OptionID:   option.OptionID,
			Label:      option.Label,
			VoteCount:  option.VoteCount,
			Percentage: Percentage(option.VoteCount, poll.TotalVotes),
			Selected:   pending.Contains(option.OptionID),
			Submitted:  poll.UserSelections.Contains(option.OptionID),
		})
	}
	return view
}
