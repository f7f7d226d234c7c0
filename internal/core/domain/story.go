package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type StoryKind string

const (
	KindQAPair StoryKind = "qa_pair"
	KindStory  StoryKind = "story"
	KindRaw    StoryKind = "raw"
)

type StoryStatus string

const (
	StatusUploaded   StoryStatus = "uploaded"
	StatusProcessing StoryStatus = "processing"
	StatusReady      StoryStatus = "ready"
	StatusFailed     StoryStatus = "failed"
)

// Story is a single prepared interview answer or experience. Content is
// immutable after creation; two stories with the same content are considered
// the same document regardless of identity.
type Story struct {
	ID        string      `json:"id"`
	Kind      StoryKind   `json:"kind"`
	Title     string      `json:"title,omitempty"`
	Content   string      `json:"content"`
	Source    string      `json:"source"`
	Tags      []string    `json:"tags,omitempty"`
	Status    StoryStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ContentHash identifies a story by its content alone. Deduplication and
// index point identity are both derived from it.
func (s Story) ContentHash() string {
	sum := sha256.Sum256([]byte(s.Content))
	return hex.EncodeToString(sum[:])
}

// NewQAPair formats a prepared question/answer pair for retrieval. The
// QUESTION/ANSWER layout keeps the original question embedded alongside the
// answer so lexically different paraphrases still land near it.
func NewQAPair(question, answer string, tags []string) Story {
	content := fmt.Sprintf("QUESTION: %s\n\nANSWER: %s", question, answer)
	return Story{
		Kind:    KindQAPair,
		Title:   question,
		Content: content,
		Tags:    tags,
	}
}

// NewStarStory formats an experience in STAR form (situation, task, action,
// result) with optional learning and measurement sections.
func NewStarStory(title, situation, task, action, result, learning, measurement string, tags []string) Story {
	var b strings.Builder
	fmt.Fprintf(&b, "STORY: %s\n\n", title)
	fmt.Fprintf(&b, "SITUATION: %s\n\n", situation)
	fmt.Fprintf(&b, "TASK: %s\n\n", task)
	fmt.Fprintf(&b, "ACTION: %s\n\n", action)
	fmt.Fprintf(&b, "RESULT: %s", result)
	if learning != "" {
		fmt.Fprintf(&b, "\n\nLEARNING: %s", learning)
	}
	if measurement != "" {
		fmt.Fprintf(&b, "\n\nMEASUREMENT: %s", measurement)
	}
	return Story{
		Kind:    KindStory,
		Title:   title,
		Content: b.String(),
		Tags:    tags,
	}
}

// DeduplicateStories keeps the first occurrence of each distinct content,
// preserving input order.
func DeduplicateStories(stories []Story) []Story {
	seen := make(map[string]struct{}, len(stories))
	out := make([]Story, 0, len(stories))
	for _, s := range stories {
		hash := s.ContentHash()
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Upload is a raw source file (plain text, PDF, spreadsheet) that the worker
// turns into stories.
type Upload struct {
	ID          string      `json:"id"`
	Filename    string      `json:"filename"`
	MimeType    string      `json:"mime_type"`
	StoragePath string      `json:"storage_path"`
	Status      StoryStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
