// Package prompt assembles grounded, ungrounded and selection prompts
// with strict character budgets.
package prompt

import (
	"fmt"
	"strings"

	"github.com/physical-ai/tutor-backend/models"
)

// Mode selects the prompt template.
type Mode int

const (
	// ModeGrounded conditions the answer on retrieved context.
	ModeGrounded Mode = iota
	// ModeUngrounded asks for a general-knowledge answer.
	ModeUngrounded
	// ModeSelection explains a reader-selected passage; retrieval is
	// bypassed entirely.
	ModeSelection
)

// Builder assembles prompts. Total prompt length is bounded by
// topK*chunkBudget plus a fixed template overhead; corpus or
// user-supplied text is never embedded beyond its budget.
type Builder struct {
	topK            int
	chunkBudget     int
	selectionBudget int
}

// NewBuilder creates a builder. Zero values fall back to the reference
// budgets: 3 chunks of 1000 characters, 500-character selections.
func NewBuilder(topK, chunkBudget, selectionBudget int) *Builder {
	if topK <= 0 {
		topK = 3
	}
	if chunkBudget <= 0 {
		chunkBudget = 1000
	}
	if selectionBudget <= 0 {
		selectionBudget = 500
	}
	return &Builder{
		topK:            topK,
		chunkBudget:     chunkBudget,
		selectionBudget: selectionBudget,
	}
}

// Build dispatches to the template for the given mode. chunks are only
// used in grounded mode, selection only in selection mode.
func (b *Builder) Build(mode Mode, question string, chunks []models.RetrievalResult, selection string) string {
	switch mode {
	case ModeSelection:
		return b.Selection(question, selection)
	case ModeGrounded:
		return b.Grounded(question, chunks)
	default:
		return b.Ungrounded(question)
	}
}

// Grounded builds a prompt from at most topK chunks, each truncated to
// the chunk budget and labeled with its source.
func (b *Builder) Grounded(question string, chunks []models.RetrievalResult) string {
	if len(chunks) > b.topK {
		chunks = chunks[:b.topK]
	}
	var context strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&context, "[%s]: %s\n", c.SourceLabel, truncate(c.Text, b.chunkBudget))
	}
	return fmt.Sprintf(`You are a robotics tutor for the Physical AI & Humanoid Robotics book. Answer concisely in 2-3 sentences using only the context below.

Context:
%s
Q: %s
A:`, context.String(), question)
}

// Ungrounded builds a general-knowledge prompt for questions with no
// matching book content.
func (b *Builder) Ungrounded(question string) string {
	return fmt.Sprintf(`You are a robotics tutor. Answer concisely in 2-3 sentences about ROS2, Gazebo, Isaac Sim, VLA or related robotics topics.

Q: %s
A:`, question)
}

// Selection builds a prompt explaining a reader-selected passage,
// truncated to the selection budget.
func (b *Builder) Selection(question, passage string) string {
	return fmt.Sprintf(`Explain this text from the Physical AI & Humanoid Robotics book concisely in 2-3 sentences:

Text: %s

Q: %s
A:`, truncate(passage, b.selectionBudget), question)
}

// MaxContextChars returns the upper bound on grounded context length.
func (b *Builder) MaxContextChars() int {
	return b.topK * b.chunkBudget
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
