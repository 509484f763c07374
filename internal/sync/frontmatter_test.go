package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/grantkit/internal/model"
)

func writeResponseDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseResponseFile_FullFrontmatter(t *testing.T) {
	t.Parallel()
	path := writeResponseDoc(t, t.TempDir(), "summary.md", `---
title: Project Summary
key: project_summary
status: final
word_limit: 250
question: Summarize the proposed work.
---

We propose an onboard data triage pipeline.
`)

	resp, err := ParseResponseFile(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", resp.GrantID)
	assert.Equal(t, "project_summary", resp.Key)
	assert.Equal(t, "Project Summary", resp.Title)
	assert.Equal(t, "final", resp.Status)
	require.NotNil(t, resp.WordLimit)
	assert.Equal(t, 250, *resp.WordLimit)
	assert.Nil(t, resp.CharLimit)
	assert.Equal(t, "Summarize the proposed work.", resp.Question)
	assert.Equal(t, "We propose an onboard data triage pipeline.", resp.Content)
}

func TestParseResponseFile_DefaultsFromFilename(t *testing.T) {
	t.Parallel()
	path := writeResponseDoc(t, t.TempDir(), "broader_impacts.md", "Impact text here.\n")

	resp, err := ParseResponseFile(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, "broader_impacts", resp.Key)
	assert.Equal(t, "Broader Impacts", resp.Title)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, "Impact text here.", resp.Content)
}

func TestParseResponseFile_EmptyBodyStatus(t *testing.T) {
	t.Parallel()
	path := writeResponseDoc(t, t.TempDir(), "data_plan.md", "")

	resp, err := ParseResponseFile(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, "empty", resp.Status)
	assert.Equal(t, "", resp.Content)
}

func TestParseResponseFile_PartialFrontmatter(t *testing.T) {
	t.Parallel()
	path := writeResponseDoc(t, t.TempDir(), "facilities.md", `---
status: review
---

Description of facilities.
`)

	resp, err := ParseResponseFile(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, "facilities", resp.Key)
	assert.Equal(t, "Facilities", resp.Title)
	assert.Equal(t, "review", resp.Status)
}

func TestParseResponseFile_UnterminatedFrontmatterTreatedAsBody(t *testing.T) {
	t.Parallel()
	path := writeResponseDoc(t, t.TempDir(), "notes.md", "--- not actually frontmatter\njust text\n")

	resp, err := ParseResponseFile(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, "notes", resp.Key)
	assert.Contains(t, resp.Content, "just text")
	assert.Equal(t, "draft", resp.Status)
}

func TestSplitFrontmatter(t *testing.T) {
	t.Parallel()

	front, body := splitFrontmatter("---\nkey: a\n---\n\nbody text")
	assert.Equal(t, "\nkey: a\n", front)
	assert.Equal(t, "body text", body)

	front, body = splitFrontmatter("plain document")
	assert.Equal(t, "", front)
	assert.Equal(t, "plain document", body)
}

func TestWriteResponseFile_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "project_summary.md")

	charLimit := 4000
	original := &model.ResponseRecord{
		GrantID:   "g1",
		Key:       "project_summary",
		Title:     "Project Summary",
		Content:   "We propose an onboard data triage pipeline.",
		Status:    "final",
		CharLimit: &charLimit,
	}
	require.NoError(t, writeResponseFile(path, original))

	parsed, err := ParseResponseFile(path, original.GrantID)
	require.NoError(t, err)
	assert.Equal(t, original.Key, parsed.Key)
	assert.Equal(t, original.Title, parsed.Title)
	assert.Equal(t, original.Status, parsed.Status)
	assert.Equal(t, original.Content, parsed.Content)
	require.NotNil(t, parsed.CharLimit)
	assert.Equal(t, 4000, *parsed.CharLimit)
}
