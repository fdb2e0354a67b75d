package api

import (
	"time"

	"github.com/quillhq/vellum/internal/index"
	"github.com/quillhq/vellum/internal/models"
)

// CreateConversationRequest is the request body for creating a conversation.
type CreateConversationRequest struct {
	Model    string           `json:"model"`
	Title    string           `json:"title,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
}

// CreateTriggerRequest is the request body for creating a trigger.
type CreateTriggerRequest struct {
	Title           string `json:"title"`
	Model           string `json:"model"`
	TriggerPrompt   string `json:"trigger_prompt"`
	IntervalMinutes int    `json:"interval_minutes"`
	Enabled         bool   `json:"enabled"`
}

// CreateRiffRequest is the request body for creating a riff.
type CreateRiffRequest struct {
	ArtifactType string `json:"artifact_type"`
	Body         string `json:"body,omitempty"`
}

// UpdateRiffBodyRequest is the request body for replacing a riff's body.
type UpdateRiffBodyRequest struct {
	Body   string `json:"body"`
	Change string `json:"change,omitempty"`
}

// AddCommentRequest is the request body for attaching a riff comment.
type AddCommentRequest struct {
	ParagraphIndex int    `json:"paragraph_index"`
	Content        string `json:"content"`
}

// IntegrateRequest is the request body for promoting a riff into a note.
// NoteName is optional; when empty the name derives from the riff's title.
type IntegrateRequest struct {
	NoteName string `json:"note_name,omitempty"`
}

// IntegrateResponse reports where the riff body landed.
type IntegrateResponse struct {
	NoteName string `json:"note_name"`
}

// RenameRequest is the request body for rename endpoints.
type RenameRequest struct {
	Title string `json:"title"`
}

// ToggleRequest is the request body for the trigger toggle endpoint.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// EntityListItem is a lightweight item in a list response.
type EntityListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Items []EntityListItem `json:"items"`
	Total int              `json:"total"`
}

func toListItems(rows []index.EntityRow) []EntityListItem {
	items := make([]EntityListItem, len(rows))
	for i, r := range rows {
		items[i] = EntityListItem{ID: r.ID, Title: r.Title, UpdatedAt: r.UpdatedAt}
	}
	return items
}
