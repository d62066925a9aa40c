package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the engagement tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&postModel{},
		&pollModel{},
		&pollOptionModel{},
		&pollVoteModel{},
		&likeModel{},
		&notificationModel{},
	); err != nil {
		return r.logError("engagement_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) FetchPoll(ctx context.Context, pollID string, viewerID string) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	row, options, err := r.loadPoll(ctx, r.db.WithContext(ctx), pollID)
	if err != nil {
		return entities.Poll{}, err
	}
	tally, err := r.FetchPollTally(ctx, pollID)
	if err != nil {
		return entities.Poll{}, err
	}

	var selections []string
	if err := r.db.WithContext(ctx).
		Model(&pollVoteModel{}).
		Where("poll_id = ?", pollID).
		Where("voter_id = ?", strings.TrimSpace(viewerID)).
		Pluck("option_id", &selections).Error; err != nil {
		return entities.Poll{}, r.logError("engagement_repo_fetch_selections_failed", err,
			"poll_id", pollID,
			"viewer_id", strings.TrimSpace(viewerID),
		)
	}

	poll := row.toEntity(options).WithTally(tally)
	poll.UserSelections = entities.NewBallot(selections...)
	return poll, nil
}

// SubmitVote replaces the voter's ballot in one transaction.
func (r *Repository) SubmitVote(ctx context.Context, pollID string, viewerID string, optionIDs []string) error {
	pollID = strings.TrimSpace(pollID)
	viewerID = strings.TrimSpace(viewerID)
	ballot := entities.NewBallot(optionIDs...)
	if viewerID == "" || len(ballot) == 0 {
		return domainerrors.ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, options, err := r.loadPoll(ctx, tx, pollID)
		if err != nil {
			return err
		}
		poll := row.toEntity(options)
		if !poll.AllowMultiple && len(ballot) > 1 {
			return domainerrors.ErrInvalidInput
		}
		for _, optionID := range ballot {
			if !poll.HasOption(optionID) {
				return domainerrors.ErrUnknownOption
			}
		}

		if err := tx.
			Where("poll_id = ?", pollID).
			Where("voter_id = ?", viewerID).
			Delete(&pollVoteModel{}).Error; err != nil {
			return r.logError("engagement_repo_clear_ballot_failed", err,
				"poll_id", pollID,
				"viewer_id", viewerID,
			)
		}

		now := time.Now().UTC()
		rows := make([]pollVoteModel, 0, len(ballot))
		for _, optionID := range ballot {
			rows = append(rows, pollVoteModel{
				PollID:    pollID,
				VoterID:   viewerID,
				OptionID:  optionID,
				CreatedAt: now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("engagement_repo_insert_ballot_failed", err,
				"poll_id", pollID,
				"viewer_id", viewerID,
			)
		}
		return nil
	})
}

func (r *Repository) FetchPollTally(ctx context.Context, pollID string) (entities.Tally, error) {
	pollID = strings.TrimSpace(pollID)
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("id = ?", pollID).
		Count(&exists).Error; err != nil {
		return entities.Tally{}, r.logError("engagement_repo_tally_lookup_failed", err, "poll_id", pollID)
	}
	if exists == 0 {
		return entities.Tally{}, domainerrors.ErrPollNotFound
	}

	var counts []optionCountRow
	if err := r.db.WithContext(ctx).
		Model(&pollVoteModel{}).
		Select("option_id, COUNT(*) AS vote_count").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&counts).Error; err != nil {
		return entities.Tally{}, r.logError("engagement_repo_tally_options_failed", err, "poll_id", pollID)
	}

	var voters int64
	if err := r.db.WithContext(ctx).
		Model(&pollVoteModel{}).
		Where("poll_id = ?", pollID).
		Distinct("voter_id").
		Count(&voters).Error; err != nil {
		return entities.Tally{}, r.logError("engagement_repo_tally_voters_failed", err, "poll_id", pollID)
	}

	tally := entities.Tally{
		PollID:     pollID,
		TotalVotes: int(voters),
		Options:    make([]entities.OptionTally, 0, len(counts)),
	}
	for _, count := range counts {
		tally.Options = append(tally.Options, entities.OptionTally{
			OptionID:  count.OptionID,
			VoteCount: int(count.VoteCount),
		})
	}
	return tally, nil
}

func (r *Repository) FetchMembership(ctx context.Context, entityID string, memberID string) (entities.LikeableCounter, error) {
	entityID = strings.TrimSpace(entityID)
	memberID = strings.TrimSpace(memberID)
	count, err := r.CountMembers(ctx, entityID)
	if err != nil {
		return entities.LikeableCounter{}, err
	}
	var liked int64
	if err := r.db.WithContext(ctx).
		Model(&likeModel{}).
		Where("entity_id = ?", entityID).
		Where("member_id = ?", memberID).
		Count(&liked).Error; err != nil {
		return entities.LikeableCounter{}, r.logError("engagement_repo_fetch_membership_failed", err,
			"entity_id", entityID,
			"member_id", memberID,
		)
	}
	return entities.LikeableCounter{
		EntityID: entityID,
		Liked:    liked > 0,
		Count:    count,
	}, nil
}

// SetMembership inserts or removes the (entity, member) row. Inserting an
// existing row or removing a missing one reports ErrConflict.
func (r *Repository) SetMembership(ctx context.Context, entityID string, memberID string, desired bool) error {
	entityID = strings.TrimSpace(entityID)
	memberID = strings.TrimSpace(memberID)
	if entityID == "" || memberID == "" {
		return domainerrors.ErrInvalidInput
	}

	if desired {
		row := likeModel{
			EntityID:  entityID,
			MemberID:  memberID,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("engagement_repo_insert_like_failed", err,
				"entity_id", entityID,
				"member_id", memberID,
			)
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Where("member_id = ?", memberID).
		Delete(&likeModel{})
	if result.Error != nil {
		return r.logError("engagement_repo_delete_like_failed", result.Error,
			"entity_id", entityID,
			"member_id", memberID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) CountMembers(ctx context.Context, entityID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&likeModel{}).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("engagement_repo_count_members_failed", err,
			"entity_id", strings.TrimSpace(entityID),
		)
	}
	return int(count), nil
}

func (r *Repository) FetchNotifications(ctx context.Context, viewerID string, opts ports.FetchOptions) ([]entities.Notification, error) {
	tx := r.db.WithContext(ctx).
		Where("viewer_id = ?", strings.TrimSpace(viewerID)).
		Order("created_at DESC").
		Order("id ASC")
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	var rows []notificationModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("engagement_repo_fetch_notifications_failed", err,
			"viewer_id", strings.TrimSpace(viewerID),
			"limit", opts.Limit,
		)
	}
	items := make([]entities.Notification, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkNotificationAsRead(ctx context.Context, viewerID string, notificationID string) error {
	result := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ?", strings.TrimSpace(notificationID)).
		Where("viewer_id = ?", strings.TrimSpace(viewerID)).
		Updates(map[string]any{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("engagement_repo_mark_read_failed", result.Error,
			"notification_id", strings.TrimSpace(notificationID),
			"viewer_id", strings.TrimSpace(viewerID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotificationNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsAsRead(ctx context.Context, viewerID string) error {
	if err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("viewer_id = ?", strings.TrimSpace(viewerID)).
		Where("is_read = ?", false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": time.Now().UTC(),
		}).Error; err != nil {
		return r.logError("engagement_repo_mark_all_read_failed", err,
			"viewer_id", strings.TrimSpace(viewerID),
		)
	}
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, limit int) ([]entities.Post, error) {
	tx := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []postModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("engagement_repo_list_posts_failed", err, "limit", limit)
	}
	items := make([]entities.Post, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ListPollIDs returns every poll id, oldest first.
func (r *Repository) ListPollIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, r.logError("engagement_repo_list_poll_ids_failed", err)
	}
	return ids, nil
}

func (r *Repository) loadPoll(ctx context.Context, tx *gorm.DB, pollID string) (pollModel, []pollOptionModel, error) {
	var row pollModel
	err := tx.WithContext(ctx).
		Where("id = ?", pollID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pollModel{}, nil, domainerrors.ErrPollNotFound
		}
		return pollModel{}, nil, r.logError("engagement_repo_get_poll_failed", err, "poll_id", pollID)
	}
	var options []pollOptionModel
	if err := tx.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("position ASC").
		Find(&options).Error; err != nil {
		return pollModel{}, nil, r.logError("engagement_repo_get_poll_options_failed", err, "poll_id", pollID)
	}
	return row, options, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-experience/engagement-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("engagement repository operation failed", fields...)
	return err
}

type postModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AuthorID  string    `gorm:"column:author_id"`
	Body      string    `gorm:"column:body"`
	Pinned    bool      `gorm:"column:pinned"`
	PollID    *string   `gorm:"column:poll_id"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (postModel) TableName() string {
	return "engagement_posts"
}

func (m postModel) toEntity() entities.Post {
	pollID := ""
	if m.PollID != nil {
		pollID = strings.TrimSpace(*m.PollID)
	}
	return entities.Post{
		PostID:    m.ID,
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		Pinned:    m.Pinned,
		PollID:    pollID,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type pollModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	PostID        string     `gorm:"column:post_id"`
	Question      string     `gorm:"column:question"`
	AllowMultiple bool       `gorm:"column:allow_multiple"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	CreatedBy     string     `gorm:"column:created_by"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (pollModel) TableName() string {
	return "engagement_polls"
}

func (m pollModel) toEntity(options []pollOptionModel) entities.Poll {
	poll := entities.Poll{
		PollID:        m.ID,
		PostID:        m.PostID,
		Question:      m.Question,
		AllowMultiple: m.AllowMultiple,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt.UTC(),
		Options:       make([]entities.PollOption, 0, len(options)),
	}
	if m.ExpiresAt != nil {
		poll.ExpiresAt = m.ExpiresAt.UTC()
	}
	for _, option := range options {
		poll.Options = append(poll.Options, entities.PollOption{
			OptionID: option.ID,
			Label:    option.Label,
		})
	}
	return poll
}

type pollOptionModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	PollID   string `gorm:"column:poll_id;index"`
	Label    string `gorm:"column:label"`
	Position int    `gorm:"column:position"`
}

func (pollOptionModel) TableName() string {
	return "engagement_poll_options"
}

type pollVoteModel struct {
	PollID    string    `gorm:"column:poll_id;primaryKey"`
	VoterID   string    `gorm:"column:voter_id;primaryKey"`
	OptionID  string    `gorm:"column:option_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (pollVoteModel) TableName() string {
	return "engagement_poll_votes"
}

type optionCountRow struct {
	OptionID  string `gorm:"column:option_id"`
	VoteCount int64  `gorm:"column:vote_count"`
}

type likeModel struct {
	EntityID  string    `gorm:"column:entity_id;primaryKey"`
	MemberID  string    `gorm:"column:member_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (likeModel) TableName() string {
	return "engagement_likes"
}

type notificationModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	ViewerID       string     `gorm:"column:viewer_id;index"`
	Type           string     `gorm:"column:type"`
	Title          string     `gorm:"column:title"`
	Message        string     `gorm:"column:message"`
	Priority       string     `gorm:"column:priority"`
	ActorID        string     `gorm:"column:actor_id"`
	PostID         *string    `gorm:"column:post_id"`
	OrganizationID *string    `gorm:"column:organization_id"`
	EventID        *string    `gorm:"column:event_id"`
	IsRead         bool       `gorm:"column:is_read"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (notificationModel) TableName() string {
	return "engagement_notifications"
}

// toEntity keeps the stored type verbatim. Unknown types are rejected by the
// notification store on ingest, not here.
func (m notificationModel) toEntity() entities.Notification {
	return entities.Notification{
		NotificationID: m.ID,
		Type:           entities.NotificationType(strings.ToLower(strings.TrimSpace(m.Type))),
		Title:          m.Title,
		Message:        m.Message,
		CreatedAt:      m.CreatedAt.UTC(),
		IsRead:         m.IsRead,
		Priority:       entities.ParsePriority(m.Priority),
		ActorID:        m.ActorID,
		PostID:         optionalString(m.PostID),
		OrganizationID: optionalString(m.OrganizationID),
		EventID:        optionalString(m.EventID),
	}
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollStore = (*Repository)(nil)
var _ ports.MembershipStore = (*Repository)(nil)
var _ ports.NotificationFeed = (*Repository)(nil)
var _ ports.PostFeed = (*Repository)(nil)
