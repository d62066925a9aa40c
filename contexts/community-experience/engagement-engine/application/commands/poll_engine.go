package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	contractsv1 "engagement/contracts/gen/events/v1"
	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/domain/services"
	"engagement/contexts/community-experience/engagement-engine/ports"

	"golang.org/x/sync/errgroup"
)

type PollEngineDependencies struct {
	Store     ports.PollStore
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	ViewerID  string
	Logger    *slog.Logger
}

type pollSession struct {
	poll       entities.Poll
	pending    entities.Ballot
	editing    bool
	submitting bool
	tallyStale bool
}

// PollEngine owns the viewer's poll snapshots. Every poll has at most one
// outstanding store call; responses carrying an outdated request token are
// dropped so a torn-down or replaced poll never receives a late write.
type PollEngine struct {
	store    ports.PollStore
	clock    ports.Clock
	viewerID string
	logger   *slog.Logger
	changes  changePublisher

	mu       sync.Mutex
	polls    map[string]*pollSession
	order    []string
	tokens   map[string]uint64
	inFlight map[string]bool
}

func NewPollEngine(deps PollEngineDependencies) *PollEngine {
	return &PollEngine{
		store:    deps.Store,
		clock:    deps.Clock,
		viewerID: strings.TrimSpace(deps.ViewerID),
		logger:   deps.Logger,
		changes: changePublisher{
			publisher: deps.Publisher,
			idGen:     deps.IDGen,
			logger:    deps.Logger,
		},
		polls:    make(map[string]*pollSession),
		tokens:   make(map[string]uint64),
		inFlight: make(map[string]bool),
	}
}

// Load replaces every poll held by the session.
func (e *PollEngine) Load(polls ...entities.Poll) error {
	for _, poll := range polls {
		if err := validatePoll(poll); err != nil {
			return err
		}
	}

	e.mu.Lock()
	for _, pollID := range e.order {
		e.tokens[pollID]++
	}
	e.polls = make(map[string]*pollSession, len(polls))
	e.order = e.order[:0]
	for _, poll := range polls {
		pollID := strings.TrimSpace(poll.PollID)
		if _, exists := e.polls[pollID]; !exists {
			e.order = append(e.order, pollID)
		}
		e.tokens[pollID]++
		e.polls[pollID] = e.installLocked(poll)
	}
	e.mu.Unlock()

	application.ResolveLogger(e.logger).Debug("poll session loaded",
		"event", "engagement_polls_loaded",
		"module", application.ModuleName,
		"layer", "application",
		"poll_count", len(polls),
	)
	return nil
}

// Refresh fetches the given polls concurrently and replaces them. Nothing is
// applied unless every fetch succeeds.
func (e *PollEngine) Refresh(ctx context.Context, pollIDs ...string) error {
	logger := application.ResolveLogger(e.logger)
	ids := normalizeIDs(pollIDs)
	if len(ids) == 0 {
		return nil
	}

	e.mu.Lock()
	tokens := make(map[string]uint64, len(ids))
	for _, pollID := range ids {
		tokens[pollID] = e.tokens[pollID]
	}
	e.mu.Unlock()

	fetched := make([]entities.Poll, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, pollID := range ids {
		group.Go(func() error {
			poll, err := e.store.FetchPoll(groupCtx, pollID, e.viewerID)
			if err != nil {
				return err
			}
			if err := validatePoll(poll); err != nil {
				return err
			}
			fetched[i] = poll
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("poll refresh failed",
			"event", "engagement_poll_refresh_failed",
			"module", application.ModuleName,
			"layer", "application",
			"poll_ids", ids,
			"error", err.Error(),
		)
		if isValidation(err) {
			return err
		}
		return domainerrors.NewStoreError("fetch_poll", err)
	}

	e.mu.Lock()
	applied := make([]string, 0, len(ids))
	for i, pollID := range ids {
		if e.tokens[pollID] != tokens[pollID] {
			continue
		}
		e.tokens[pollID]++
		if _, exists := e.polls[pollID]; !exists {
			e.order = append(e.order, pollID)
		}
		e.polls[pollID] = e.installLocked(fetched[i])
		applied = append(applied, pollID)
	}
	e.mu.Unlock()

	now := e.now()
	for _, pollID := range applied {
		e.changes.publish(ctx, ports.TopicPollChanged, "poll_id", pollID, now, contractsv1.PollChanged{
			PollID: pollID,
			Reason: "refreshed",
		})
	}
	if len(applied) < len(ids) {
		return domainerrors.ErrStaleResponse
	}
	return nil
}

// Discard tears a poll down. In-flight responses for it are dropped.
func (e *PollEngine) Discard(pollID string) {
	pollID = strings.TrimSpace(pollID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokens[pollID]++
	if _, ok := e.polls[pollID]; !ok {
		return
	}
	delete(e.polls, pollID)
	filtered := e.order[:0]
	for _, id := range e.order {
		if id != pollID {
			filtered = append(filtered, id)
		}
	}
	e.order = filtered
}

// SelectOption edits the pending ballot only. Counts are untouched until a
// submitted vote is resynced.
func (e *PollEngine) SelectOption(ctx context.Context, pollID string, optionID string) (entities.PollView, error) {
	logger := application.ResolveLogger(e.logger)
	pollID = strings.TrimSpace(pollID)
	optionID = strings.TrimSpace(optionID)
	now := e.now()

	e.mu.Lock()
	session, ok := e.polls[pollID]
	if !ok {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrPollNotFound
	}
	if session.submitting {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrSubmissionInFlight
	}
	if !session.poll.IsExpired(now) && services.ShowResults(session.poll, session.editing, now) {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrResultsLocked
	}
	pending, err := services.ApplySelection(session.poll, session.pending, optionID, now)
	if err != nil {
		e.mu.Unlock()
		logger.Warn("poll option selection rejected",
			"event", "engagement_poll_select_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
			"option_id", optionID,
			"error", err.Error(),
		)
		return entities.PollView{}, err
	}
	session.pending = pending
	view := session.view(now)
	e.mu.Unlock()

	e.changes.publish(ctx, ports.TopicPollChanged, "poll_id", pollID, now, contractsv1.PollChanged{
		PollID: pollID,
		Reason: "selection_changed",
	})
	return view, nil
}

// CastVote submits the pending ballot and then replaces the tally with a
// fresh authoritative read. A failed submit leaves the poll unchanged.
func (e *PollEngine) CastVote(ctx context.Context, pollID string) (entities.PollView, error) {
	logger := application.ResolveLogger(e.logger)
	pollID = strings.TrimSpace(pollID)
	logger.Info("poll vote submission started",
		"event", "engagement_poll_vote_started",
		"module", application.ModuleName,
		"layer", "application",
		"poll_id", pollID,
		"viewer_id", e.viewerID,
	)

	e.mu.Lock()
	session, ok := e.polls[pollID]
	if !ok {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrPollNotFound
	}
	if session.submitting {
		e.mu.Unlock()
		logger.Warn("poll vote submission rejected while another is in flight",
			"event", "engagement_poll_vote_in_flight",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
		)
		return entities.PollView{}, domainerrors.ErrSubmissionInFlight
	}
	now := e.now()
	ballot := session.pending.Clone()
	if err := services.ValidateBallot(session.poll, ballot, now); err != nil {
		e.mu.Unlock()
		logger.Warn("poll vote validation failed",
			"event", "engagement_poll_vote_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.PollView{}, err
	}
	if services.ShowResults(session.poll, session.editing, now) {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrResultsLocked
	}
	session.submitting = true
	e.inFlight[pollID] = true
	e.tokens[pollID]++
	token := e.tokens[pollID]
	e.mu.Unlock()

	if err := e.store.SubmitVote(ctx, pollID, e.viewerID, ballot); err != nil {
		e.mu.Lock()
		current := e.tokens[pollID] == token
		e.releaseLocked(pollID)
		e.mu.Unlock()
		if !current {
			return entities.PollView{}, domainerrors.ErrStaleResponse
		}
		logger.Error("poll vote submission failed",
			"event", "engagement_poll_vote_failed",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
			"viewer_id", e.viewerID,
			"error", err.Error(),
		)
		return entities.PollView{}, domainerrors.NewStoreError("submit_vote", err)
	}

	tally, tallyErr := e.store.FetchPollTally(ctx, pollID)

	e.mu.Lock()
	if e.tokens[pollID] != token {
		e.releaseLocked(pollID)
		e.mu.Unlock()
		logger.Info("poll vote response dropped as stale",
			"event", "engagement_poll_vote_stale",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
		)
		return entities.PollView{}, domainerrors.ErrStaleResponse
	}
	session.poll.UserSelections = ballot
	session.pending = ballot.Clone()
	session.editing = false
	e.releaseLocked(pollID)
	if tallyErr == nil {
		session.poll = session.poll.WithTally(tally)
		session.tallyStale = false
	} else {
		session.tallyStale = true
	}
	applied := e.now()
	view := session.view(applied)
	e.mu.Unlock()

	if tallyErr != nil {
		logger.Warn("poll tally resync failed after vote; keeping previous counts",
			"event", "engagement_poll_tally_resync_failed",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
			"error", tallyErr.Error(),
		)
	}
	logger.Info("poll vote applied",
		"event", "engagement_poll_vote_applied",
		"module", application.ModuleName,
		"layer", "application",
		"poll_id", pollID,
		"viewer_id", e.viewerID,
		"selections", []string(ballot),
		"total_votes", view.TotalVotes,
	)
	e.changes.publish(ctx, ports.TopicPollChanged, "poll_id", pollID, applied, contractsv1.PollChanged{
		PollID:     pollID,
		Reason:     "vote_cast",
		Selections: []string(ballot),
		TotalVotes: &view.TotalVotes,
	})
	return view, nil
}

// ResyncTally retries the authoritative tally read for a poll.
func (e *PollEngine) ResyncTally(ctx context.Context, pollID string) (entities.PollView, error) {
	logger := application.ResolveLogger(e.logger)
	pollID = strings.TrimSpace(pollID)

	e.mu.Lock()
	session, ok := e.polls[pollID]
	if !ok {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrPollNotFound
	}
	if session.submitting {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrSubmissionInFlight
	}
	session.submitting = true
	e.inFlight[pollID] = true
	e.tokens[pollID]++
	token := e.tokens[pollID]
	e.mu.Unlock()

	tally, err := e.store.FetchPollTally(ctx, pollID)

	e.mu.Lock()
	e.releaseLocked(pollID)
	if e.tokens[pollID] != token {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrStaleResponse
	}
	if err != nil {
		e.mu.Unlock()
		logger.Error("poll tally resync failed",
			"event", "engagement_poll_tally_failed",
			"module", application.ModuleName,
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.PollView{}, domainerrors.NewStoreError("fetch_poll_tally", err)
	}
	session.poll = session.poll.WithTally(tally)
	session.tallyStale = false
	now := e.now()
	view := session.view(now)
	e.mu.Unlock()

	e.changes.publish(ctx, ports.TopicPollChanged, "poll_id", pollID, now, contractsv1.PollChanged{
		PollID:     pollID,
		Reason:     "tally_resynced",
		TotalVotes: &view.TotalVotes,
	})
	return view, nil
}

// RevertToVoting reopens the ballot editor with the submitted selections as
// the pending ballot.
func (e *PollEngine) RevertToVoting(ctx context.Context, pollID string) (entities.PollView, error) {
	pollID = strings.TrimSpace(pollID)
	now := e.now()

	e.mu.Lock()
	session, ok := e.polls[pollID]
	if !ok {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrPollNotFound
	}
	if session.submitting {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrSubmissionInFlight
	}
	if !services.CanRevert(session.poll, session.editing, now) {
		e.mu.Unlock()
		return entities.PollView{}, domainerrors.ErrRevertNotAllowed
	}
	session.editing = true
	session.pending = session.poll.UserSelections.Clone()
	view := session.view(now)
	e.mu.Unlock()

	e.changes.publish(ctx, ports.TopicPollChanged, "poll_id", pollID, now, contractsv1.PollChanged{
		PollID: pollID,
		Reason: "reverted_to_voting",
	})
	return view, nil
}

func (e *PollEngine) Snapshot(pollID string) (entities.PollView, error) {
	pollID = strings.TrimSpace(pollID)
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.polls[pollID]
	if !ok {
		return entities.PollView{}, domainerrors.ErrPollNotFound
	}
	return session.view(now), nil
}

// Snapshots returns every poll in load order.
func (e *PollEngine) Snapshots() []entities.PollView {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	views := make([]entities.PollView, 0, len(e.order))
	for _, pollID := range e.order {
		if session, ok := e.polls[pollID]; ok {
			views = append(views, session.view(now))
		}
	}
	return views
}

// releaseLocked ends the poll's outstanding store call. The flag is cleared on
// whichever session is installed now, including one a refresh put in place
// while the call was running.
func (e *PollEngine) releaseLocked(pollID string) {
	delete(e.inFlight, pollID)
	if session, ok := e.polls[pollID]; ok {
		session.submitting = false
	}
}

// installLocked builds a session for a freshly loaded poll. A store call still
// outstanding for the poll keeps guarding the replacement.
func (e *PollEngine) installLocked(poll entities.Poll) *pollSession {
	session := newPollSession(poll)
	session.submitting = e.inFlight[session.poll.PollID]
	return session
}

func (e *PollEngine) now() time.Time {
	return resolveNow(e.clock)
}

func newPollSession(poll entities.Poll) *pollSession {
	poll = poll.Clone()
	poll.PollID = strings.TrimSpace(poll.PollID)
	poll.UserSelections = entities.NewBallot(poll.UserSelections...)
	return &pollSession{
		poll:    poll,
		pending: poll.UserSelections.Clone(),
	}
}

func (s *pollSession) view(now time.Time) entities.PollView {
	return services.BuildPollView(s.poll, s.pending, s.editing, s.submitting, s.tallyStale, now)
}

func validatePoll(poll entities.Poll) error {
	if strings.TrimSpace(poll.PollID) == "" {
		return domainerrors.ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(poll.Options))
	for _, option := range poll.Options {
		id := strings.TrimSpace(option.OptionID)
		if id == "" || option.VoteCount < 0 {
			return domainerrors.ErrInvalidInput
		}
		if _, dup := seen[id]; dup {
			return domainerrors.ErrInvalidInput
		}
		seen[id] = struct{}{}
	}
	selections := entities.NewBallot(poll.UserSelections...)
	if !poll.AllowMultiple && len(selections) > 1 {
		return domainerrors.ErrInvalidInput
	}
	for _, id := range selections {
		if _, ok := seen[id]; !ok {
			return domainerrors.ErrUnknownOption
		}
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
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
	return out
}

func isValidation(err error) bool {
	return errors.Is(err, domainerrors.ErrValidation)
}
