package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	httpadapter "engagement/contexts/community-experience/engagement-engine/adapters/http"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"

	"github.com/spf13/cobra"
)

func newFeedCommand(opts *commandOptions) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the composed feed with likes and polls",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer session.Close()

			feed, err := session.Module.Handler.FeedHandler(cmd.Context(), tab)
			if err != nil {
				return err
			}
			rows := make([]tableRow, 0, len(feed.Items))
			for _, item := range feed.Items {
				poll := ""
				stale := item.Likes.CountStale
				busy := item.Likes.Toggling
				if item.Poll != nil {
					poll = fmt.Sprintf("%s (%s, %d votes)", item.Poll.Question, item.Poll.State, item.Poll.TotalVotes)
					stale = stale || item.Poll.TallyStale
					busy = busy || item.Poll.Submitting
				}
				rows = append(rows, tableRow{
					cells: []string{
						item.PostID,
						pinnedMark(item.Pinned),
						truncate(item.Body, 48),
						likeCell(item.Likes.Count, item.Likes.Liked),
						poll,
					},
					tone: toneFor(stale, busy),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]column{{title: "Post"}, {title: "Pinned"}, {title: "Body"}, {title: "Likes", numeric: true}, {title: "Poll"}},
				rows,
				shouldColorize(out),
			))
			fmt.Fprintf(out, "unread notifications: %d\n", feed.UnreadCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "all", "Notification tab used for the unread summary")
	return cmd
}

func newPollsCommand(opts *commandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "polls",
		Short: "Show every poll with its authoritative tally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.LoadAllPolls(cmd.Context()); err != nil {
				return err
			}
			rows := make([]tableRow, 0)
			for _, poll := range session.Module.Polls.Snapshots() {
				state := string(poll.State)
				if poll.TallyStale {
					state += " (stale)"
				}
				for _, option := range poll.Options {
					rows = append(rows, tableRow{
						cells: []string{
							poll.PollID,
							truncate(poll.Question, 40),
							state,
							option.Label,
							strconv.Itoa(option.VoteCount),
							strconv.Itoa(option.Percentage) + "%",
							selectedMark(option.Submitted),
						},
						tone: toneFor(poll.TallyStale, poll.Submitting),
					})
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]column{
					{title: "Poll"}, {title: "Question"}, {title: "State"}, {title: "Option"},
					{title: "Votes", numeric: true}, {title: "Share", numeric: true}, {title: "Mine"},
				},
				rows,
				shouldColorize(out),
			))
			return nil
		},
	}
}

func newNotificationsCommand(opts *commandOptions) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications under a tab",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := entities.ParseNotificationTab(tab); !ok {
				return fmt.Errorf("%w: %q", domainerrors.ErrInvalidTab, tab)
			}
			session, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer session.Close()

			list, err := session.Module.Handler.ListNotificationsHandler(cmd.Context(), tab)
			if err != nil {
				return err
			}
			rows := make([]tableRow, 0, len(list.Items))
			for _, item := range list.Items {
				row := tableRow{cells: []string{
					item.CreatedAt.Format(time.RFC3339),
					httpadapter.TypeLabel(entities.NotificationType(item.Type)),
					item.Priority,
					truncate(item.Title, 40),
					readMark(item.IsRead),
				}}
				if !item.IsRead {
					row.tone = toneUnread
				}
				rows = append(rows, row)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]column{{title: "When"}, {title: "Type"}, {title: "Priority"}, {title: "Title"}, {title: "Read"}},
				rows,
				shouldColorize(out),
			))
			counts := make([]string, 0, len(list.TabCounts))
			for _, count := range list.TabCounts {
				counts = append(counts, fmt.Sprintf("%s=%d", count.Tab, count.Count))
			}
			fmt.Fprintf(out, "unread: %d  tabs: %s\n", list.UnreadCount, strings.Join(counts, " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "all", "all, unread, posts or organizations")
	return cmd
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

func likeCell(count int, liked bool) string {
	if liked {
		return strconv.Itoa(count) + " ♥"
	}
	return strconv.Itoa(count)
}

func pinnedMark(pinned bool) string {
	if pinned {
		return "yes"
	}
	return ""
}

func selectedMark(selected bool) string {
	if selected {
		return "✓"
	}
	return ""
}

func readMark(read bool) string {
	if read {
		return "read"
	}
	return "unread"
}
