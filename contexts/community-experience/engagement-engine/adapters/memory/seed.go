package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"

	"gopkg.in/yaml.v3"
)

// Seed is the fixture document accepted by LoadSeed.
type Seed struct {
	Posts         []SeedPost         `yaml:"posts"`
	Polls         []SeedPoll         `yaml:"polls"`
	Likes         []SeedLike         `yaml:"likes"`
	Notifications []SeedNotification `yaml:"notifications"`
}

type SeedPost struct {
	ID        string    `yaml:"id"`
	AuthorID  string    `yaml:"author_id"`
	Body      string    `yaml:"body"`
	Pinned    bool      `yaml:"pinned"`
	PollID    string    `yaml:"poll_id"`
	CreatedAt time.Time `yaml:"created_at"`
}

type SeedPoll struct {
	ID            string           `yaml:"id"`
	PostID        string           `yaml:"post_id"`
	Question      string           `yaml:"question"`
	AllowMultiple bool             `yaml:"allow_multiple"`
	ExpiresAt     time.Time        `yaml:"expires_at"`
	CreatedBy     string           `yaml:"created_by"`
	Options       []SeedPollOption `yaml:"options"`
	Votes         []SeedVote       `yaml:"votes"`
}

type SeedPollOption struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type SeedVote struct {
	VoterID string   `yaml:"voter_id"`
	Options []string `yaml:"options"`
}

type SeedLike struct {
	EntityID string   `yaml:"entity_id"`
	Members  []string `yaml:"members"`
}

type SeedNotification struct {
	ID             string    `yaml:"id"`
	ViewerID       string    `yaml:"viewer_id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Message        string    `yaml:"message"`
	CreatedAt      time.Time `yaml:"created_at"`
	Read           bool      `yaml:"read"`
	Priority       string    `yaml:"priority"`
	ActorID        string    `yaml:"actor_id"`
	PostID         string    `yaml:"post_id"`
	OrganizationID string    `yaml:"organization_id"`
	EventID        string    `yaml:"event_id"`
}

// LoadSeedFile opens path and applies it with LoadSeed.
func LoadSeedFile(store *Store, path string) error {
	file, err := os.Open(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close()
	return LoadSeed(store, file)
}

// LoadSeed decodes a YAML fixture and writes it into store through the same
// operations a live client would use.
func LoadSeed(store *Store, r io.Reader) error {
	ctx := context.Background()
	var seed Seed
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, item := range seed.Posts {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("seed post is missing id")
		}
		store.SetPost(entities.Post{
			PostID:    strings.TrimSpace(item.ID),
			AuthorID:  strings.TrimSpace(item.AuthorID),
			Body:      item.Body,
			Pinned:    item.Pinned,
			PollID:    strings.TrimSpace(item.PollID),
			CreatedAt: item.CreatedAt.UTC(),
		})
	}

	for _, item := range seed.Polls {
		if strings.TrimSpace(item.ID) == "" || len(item.Options) == 0 {
			return fmt.Errorf("seed poll %q needs an id and options", item.ID)
		}
		poll := entities.Poll{
			PollID:        strings.TrimSpace(item.ID),
			PostID:        strings.TrimSpace(item.PostID),
			Question:      item.Question,
			AllowMultiple: item.AllowMultiple,
			ExpiresAt:     item.ExpiresAt.UTC(),
			CreatedBy:     strings.TrimSpace(item.CreatedBy),
		}
		for _, option := range item.Options {
			poll.Options = append(poll.Options, entities.PollOption{
				OptionID: strings.TrimSpace(option.ID),
				Label:    option.Label,
			})
		}
		store.SetPoll(poll)
		for _, vote := range item.Votes {
			if err := store.SubmitVote(ctx, poll.PollID, vote.VoterID, vote.Options); err != nil {
				return fmt.Errorf("seed vote on poll %s by %s: %w", poll.PollID, vote.VoterID, err)
			}
		}
	}

	for _, item := range seed.Likes {
		for _, member := range item.Members {
			if err := store.SetMembership(ctx, item.EntityID, member, true); err != nil {
				return fmt.Errorf("seed like on %s by %s: %w", item.EntityID, member, err)
			}
		}
	}

	for _, item := range seed.Notifications {
		notificationType, ok := entities.ParseNotificationType(item.Type)
		if !ok {
			return fmt.Errorf("seed notification %q has unknown type %q", item.ID, item.Type)
		}
		store.AddNotification(item.ViewerID, entities.Notification{
			NotificationID: strings.TrimSpace(item.ID),
			Type:           notificationType,
			Title:          item.Title,
			Message:        item.Message,
			CreatedAt:      item.CreatedAt.UTC(),
			IsRead:         item.Read,
			Priority:       entities.ParsePriority(item.Priority),
			ActorID:        strings.TrimSpace(item.ActorID),
			PostID:         strings.TrimSpace(item.PostID),
			OrganizationID: strings.TrimSpace(item.OrganizationID),
			EventID:        strings.TrimSpace(item.EventID),
		})
	}
	return nil
}
