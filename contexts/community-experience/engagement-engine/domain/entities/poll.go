package entities

import (
	"sort"
	"strings"
	"time"
)

type PollState string

const (
	PollStateUnvoted PollState = "unvoted"
	PollStateVoted   PollState = "voted"
	PollStateExpired PollState = "expired"
)

type PollOption struct {
	OptionID  string
	Label     string
	VoteCount int
}

// Ballot is a sorted, duplicate-free set of option ids.
type Ballot []string

func NewBallot(optionIDs ...string) Ballot {
	seen := make(map[string]struct{}, len(optionIDs))
	out := make(Ballot, 0, len(optionIDs))
	for _, id := range optionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b Ballot) Contains(optionID string) bool {
	idx := sort.SearchStrings(b, optionID)
	return idx < len(b) && b[idx] == optionID
}

// Toggle returns a new ballot with optionID added or removed.
func (b Ballot) Toggle(optionID string) Ballot {
	if b.Contains(optionID) {
		out := make(Ballot, 0, len(b))
		for _, id := range b {
			if id != optionID {
				out = append(out, id)
			}
		}
		return out
	}
	return NewBallot(append(b.Clone(), optionID)...)
}

func (b Ballot) Clone() Ballot {
	if b == nil {
		return Ballot{}
	}
	out := make(Ballot, len(b))
	copy(out, b)
	return out
}

func (b Ballot) Equal(other Ballot) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

type Poll struct {
	PollID         string
	PostID         string
	Question       string
	Options        []PollOption
	AllowMultiple  bool
	ExpiresAt      time.Time
	TotalVotes     int
	UserSelections Ballot
	CreatedBy      string
	CreatedAt      time.Time
}

// IsExpired reports whether the poll is closed at now. A zero ExpiresAt never
// expires.
func (p Poll) IsExpired(now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(p.ExpiresAt)
}

func (p Poll) HasVoted() bool {
	return len(p.UserSelections) > 0
}

func (p Poll) State(now time.Time) PollState {
	switch {
	case p.IsExpired(now):
		return PollStateExpired
	case p.HasVoted():
		return PollStateVoted
	default:
		return PollStateUnvoted
	}
}

func (p Poll) HasOption(optionID string) bool {
	for _, option := range p.Options {
		if option.OptionID == optionID {
			return true
		}
	}
	return false
}

// Clone deep-copies the option slice and ballot so snapshots never alias
// engine-owned state.
func (p Poll) Clone() Poll {
	out := p
	out.Options = make([]PollOption, len(p.Options))
	copy(out.Options, p.Options)
	out.UserSelections = p.UserSelections.Clone()
	return out
}

type OptionTally struct {
	OptionID  string
	VoteCount int
}

// Tally is the authoritative per-option count plus distinct voter total.
// For multi-choice polls the option counts may sum past TotalVotes.
type Tally struct {
	PollID     string
	Options    []OptionTally
	TotalVotes int
}

// WithTally replaces every option count and the voter total. Options missing
// from the tally are reset to zero; tally entries for unknown options are
// ignored.
func (p Poll) WithTally(tally Tally) Poll {
	out := p.Clone()
	counts := make(map[string]int, len(tally.Options))
	for _, item := range tally.Options {
		counts[item.OptionID] = item.VoteCount
	}
	for i := range out.Options {
		count := counts[out.Options[i].OptionID]
		if count < 0 {
			count = 0
		}
		out.Options[i].VoteCount = count
	}
	total := tally.TotalVotes
	if total < 0 {
		total = 0
	}
	out.TotalVotes = total
	return out
}

type PollOptionView struct {
	OptionID   string
	Label      string
	VoteCount  int
	Percentage int
	Selected   bool
	Submitted  bool
}

// PollView is the presentation snapshot of one poll.
type PollView struct {
	PollID        string
	PostID        string
	Question      string
	AllowMultiple bool
	ExpiresAt     time.Time
	State         PollState
	TotalVotes    int
	Options       []PollOptionView
	Pending       Ballot
	Submitted     Ballot
	ShowResults   bool
	CanRevert     bool
	Submitting    bool
	TallyStale    bool
}
