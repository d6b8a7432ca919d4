// Package export renders a conversation as JSON and Markdown artifacts.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vnote-labs/coach/internal/domain"
)

// Version is the payload format version.
const Version = "1.0"

const filePrefix = "vnote-conversation-"

// Payload is the exported conversation document.
type Payload struct {
	Version     string                      `json:"version"`
	GeneratedAt string                      `json:"generatedAt"`
	Persona     domain.Persona              `json:"persona"`
	Plan        domain.SalesPlan            `json:"plan"`
	Goals       []domain.GoalState          `json:"goals"`
	Checklist   []domain.ChecklistItemState `json:"checklist"`
	History     []domain.ConversationTurn   `json:"history"`
}

// BuildPayload copies the conversation into an export payload stamped with now.
func BuildPayload(s domain.Snapshot, plan domain.SalesPlan, now time.Time) Payload {
	c := s.Clone()
	p := Payload{
		Version:     Version,
		GeneratedAt: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Persona:     c.Persona,
		Plan:        plan,
		Goals:       c.Goals,
		Checklist:   c.Checklist,
		History:     c.History,
	}
	if p.Goals == nil {
		p.Goals = []domain.GoalState{}
	}
	if p.Checklist == nil {
		p.Checklist = []domain.ChecklistItemState{}
	}
	if p.History == nil {
		p.History = []domain.ConversationTurn{}
	}
	return p
}

// Stamp turns the generation time into a file-name safe token.
func (p Payload) Stamp() string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(p.GeneratedAt)
}

// JSONName and MarkdownName are the artifact file names for p.
func (p Payload) JSONName() string     { return filePrefix + p.Stamp() + ".json" }
func (p Payload) MarkdownName() string { return filePrefix + p.Stamp() + ".md" }

// RenderJSON encodes p with two-space indentation.
func RenderJSON(p Payload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export payload: %w", err)
	}
	return data, nil
}

// RenderMarkdown renders p as a readable transcript.
func RenderMarkdown(p Payload) string {
	lines := []string{
		"# VNote Conversation Transcript",
		"Generated: " + p.GeneratedAt,
		fmt.Sprintf("Persona: %s — %s", p.Persona.Name, p.Persona.Title),
		"",
		"## Goals",
	}
	for _, g := range p.Goals {
		lines = append(lines, fmt.Sprintf("- [%s] %s", mark(g.Done), g.Name))
	}
	lines = append(lines, "", "## Checklist")
	for _, item := range p.Checklist {
		lines = append(lines, fmt.Sprintf("- [%s] %s", mark(item.Done), item.Name))
	}
	lines = append(lines, "", "## Conversation")
	for _, turn := range p.History {
		lines = append(lines,
			fmt.Sprintf("**%s (%s):**", RoleLabel(turn.Role), turn.Timestamp.Format("15:04:05")),
			turn.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// RoleLabel is the transcript heading for a role.
func RoleLabel(role domain.Role) string {
	switch role {
	case domain.RoleAssistant:
		return "Assistant (Next best line)"
	case domain.RoleAgent:
		return "Agent"
	case domain.RoleCustomer:
		return "Customer"
	default:
		return string(role)
	}
}

func mark(done bool) string {
	if done {
		return "x"
	}
	return " "
}

// Sink stores one named artifact.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// FileSink writes artifacts into Dir, creating it when needed.
type FileSink struct {
	Dir string
}

func (s FileSink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
