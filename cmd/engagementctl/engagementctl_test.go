package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "")
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFeedCommandRendersSeededFeed(t *testing.T) {
	out, err := runCommand(t, "feed", "--seed", "testdata/seed.yaml", "--viewer", "viewer-local")
	require.NoError(t, err)

	assert.Contains(t, out, "post_welcome")
	assert.Contains(t, out, "post_meetup")
	assert.Contains(t, out, "1 ♥")
	assert.Contains(t, out, "unread notifications: 2")
	assert.Less(t, strings.Index(out, "post_welcome"), strings.Index(out, "post_meetup"), "pinned post renders first")
}

func TestPollsCommandShowsTally(t *testing.T) {
	out, err := runCommand(t, "polls", "--seed", "testdata/seed.yaml", "--viewer", "member_ana")
	require.NoError(t, err)

	assert.Contains(t, out, "poll_venue")
	assert.Contains(t, out, "67%")
	assert.Contains(t, out, "33%")
	assert.Contains(t, out, "✓")
}

func TestNotificationsCommandFiltersByTab(t *testing.T) {
	out, err := runCommand(t, "notifications", "--seed", "testdata/seed.yaml", "--viewer", "viewer-local", "--tab", "organizations")
	require.NoError(t, err)

	assert.Contains(t, out, "Organization Approved")
	assert.NotContains(t, out, "Post Comment Reply")
	assert.Contains(t, out, "unread: 2  tabs: all=3 unread=2 posts=1 organizations=1")

	_, err = runCommand(t, "notifications", "--seed", "testdata/seed.yaml", "--tab", "archived")
	require.Error(t, err)
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]column{{title: "Name"}, {title: "Count", numeric: true}},
		[]tableRow{{cells: []string{"alpha", "1"}}, {cells: []string{"beta"}}},
		false,
	)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Equal(t, 5, strings.Count(out, "\n"), "borders, header, separator and two rows")
	assert.NotContains(t, out, "\x1b[")
	assert.Empty(t, renderTable(nil, nil, false))
	assert.False(t, shouldColorize(&bytes.Buffer{}))
}

func TestRenderTableColorsUnsettledRows(t *testing.T) {
	rows := []tableRow{
		{cells: []string{"poll_1", "voted"}, tone: toneFor(true, false)},
		{cells: []string{"post_1", "liked"}, tone: toneFor(true, true)},
		{cells: []string{"post_2", ""}},
	}
	out := renderTable([]column{{title: "Id"}, {title: "State"}}, rows, true)
	assert.Contains(t, out, text.Colors{text.FgYellow}.Sprint("poll_1"))
	assert.Contains(t, out, text.Colors{text.FgCyan}.Sprint("post_1"))
	assert.NotContains(t, out, text.Colors{text.FgYellow}.Sprint("post_2"))

	plain := renderTable([]column{{title: "Id"}, {title: "State"}}, rows, false)
	assert.NotContains(t, plain, "\x1b[")
	assert.Equal(t, toneSettled, toneFor(false, false))
}

func TestCellHelpers(t *testing.T) {
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
	assert.Equal(t, "line one line two", truncate("line one\nline two", 40))
	assert.Equal(t, "3 ♥", likeCell(3, true))
	assert.Equal(t, "3", likeCell(3, false))
	assert.Equal(t, "unread", readMark(false))
}
