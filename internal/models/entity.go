// Package models defines the persisted entity types stored in the vault.
package models

import "time"

// Kind identifies an entity family within the vault.
type Kind string

// Entity kinds.
const (
	KindConversation Kind = "conversation"
	KindTrigger      Kind = "trigger"
	KindRiff         Kind = "riff"
	KindNote         Kind = "note"
)

// Usage records token accounting for a single model call.
type Usage struct {
	InputTokens  int `yaml:"inputTokens" json:"input_tokens"`
	OutputTokens int `yaml:"outputTokens" json:"output_tokens"`
}

// ToolUse records one tool invocation made while producing a message.
type ToolUse struct {
	Name   string `yaml:"name" json:"name"`
	Input  string `yaml:"input,omitempty" json:"input,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Message is a single entry in a conversation or trigger transcript.
type Message struct {
	Role        string    `yaml:"role" json:"role"`
	Timestamp   time.Time `yaml:"timestamp" json:"timestamp"`
	Content     string    `yaml:"content" json:"content"`
	Attachments []string  `yaml:"attachments,omitempty" json:"attachments,omitempty"`
	ToolUse     []ToolUse `yaml:"toolUse,omitempty" json:"tool_use,omitempty"`
	Usage       *Usage    `yaml:"usage,omitempty" json:"usage,omitempty"`
}

// Comparison holds a parallel transcript produced by a second model
// answering the same prompts.
type Comparison struct {
	Model    string    `yaml:"model" json:"model"`
	Messages []Message `yaml:"messages" json:"messages"`
}

// Conversation is a chat transcript persisted as conversations/<id>.yaml,
// mirrored by a generated Markdown preview sharing the same stem.
type Conversation struct {
	ID         string      `yaml:"id" json:"id"`
	Created    time.Time   `yaml:"created" json:"created"`
	Updated    time.Time   `yaml:"updated" json:"updated"`
	Model      string      `yaml:"model" json:"model"`
	Title      string      `yaml:"title,omitempty" json:"title,omitempty"`
	Messages   []Message   `yaml:"messages" json:"messages"`
	Comparison *Comparison `yaml:"comparison,omitempty" json:"comparison,omitempty"`
}

// TriggerEvent is one entry in a trigger's firing history.
type TriggerEvent struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Result    string    `yaml:"result" json:"result"`
	Reasoning string    `yaml:"reasoning" json:"reasoning"`
	Usage     *Usage    `yaml:"usage,omitempty" json:"usage,omitempty"`
}

// Trigger is a scheduled condition check persisted as triggers/<id>.yaml.
// LastChecked and LastTriggered are scheduler bookkeeping; they are nil
// until the scheduler first visits the trigger.
type Trigger struct {
	ID              string         `yaml:"id" json:"id"`
	Created         time.Time      `yaml:"created" json:"created"`
	Updated         time.Time      `yaml:"updated" json:"updated"`
	Title           string         `yaml:"title" json:"title"`
	Model           string         `yaml:"model" json:"model"`
	Enabled         bool           `yaml:"enabled" json:"enabled"`
	TriggerPrompt   string         `yaml:"triggerPrompt" json:"trigger_prompt"`
	IntervalMinutes int            `yaml:"intervalMinutes" json:"interval_minutes"`
	Messages        []Message      `yaml:"messages" json:"messages"`
	LastChecked     *time.Time     `yaml:"lastChecked,omitempty" json:"last_checked,omitempty"`
	LastTriggered   *time.Time     `yaml:"lastTriggered,omitempty" json:"last_triggered,omitempty"`
	History         []TriggerEvent `yaml:"history" json:"history"`
}

// CommentAnchor locates a comment within a riff body. ParagraphIndex is the
// primary anchor; Snippet is the fallback used to re-anchor the comment when
// paragraph indices shift under edits.
type CommentAnchor struct {
	ParagraphIndex int    `yaml:"paragraphIndex" json:"paragraph_index"`
	Snippet        string `yaml:"snippet" json:"snippet"`
}

// Comment is a review remark attached to a riff paragraph.
type Comment struct {
	ID        string        `yaml:"id" json:"id"`
	Timestamp time.Time     `yaml:"timestamp" json:"timestamp"`
	Anchor    CommentAnchor `yaml:"anchor" json:"anchor"`
	Content   string        `yaml:"content" json:"content"`
}

// RiffChange is one entry in a riff's edit history.
type RiffChange struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Change    string    `yaml:"change" json:"change"`
}

// RiffMessage is a conversational exchange recorded alongside a riff.
type RiffMessage struct {
	Role      string    `yaml:"role" json:"role"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Content   string    `yaml:"content" json:"content"`
	Action    string    `yaml:"action,omitempty" json:"action,omitempty"`
}

// RiffMeta is the structured frontmatter of a riff document.
type RiffMeta struct {
	ID           string        `yaml:"id" json:"id"`
	Created      time.Time     `yaml:"created" json:"created"`
	Updated      time.Time     `yaml:"updated" json:"updated"`
	Integrated   bool          `yaml:"integrated" json:"integrated"`
	ArtifactType string        `yaml:"artifactType" json:"artifact_type"`
	History      []RiffChange  `yaml:"history,omitempty" json:"history,omitempty"`
	Messages     []RiffMessage `yaml:"messages,omitempty" json:"messages,omitempty"`
	Comments     []Comment     `yaml:"comments,omitempty" json:"comments,omitempty"`
}

// Riff is an in-progress, AI-assisted draft persisted as riffs/<id>.md:
// YAML frontmatter (RiffMeta) followed by a Markdown body.
type Riff struct {
	Meta RiffMeta `json:"meta"`
	Body string   `json:"body"`
}
