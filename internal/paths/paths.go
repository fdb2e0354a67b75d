// Package paths maps entity kinds and ids to canonical vault paths and back.
// All paths are relative to the vault root and use forward slashes.
package paths

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/vellum/internal/models"
)

// Vault directories per entity kind.
const (
	ConversationsDir = "conversations"
	TriggersDir      = "triggers"
	RiffsDir         = "riffs"
	NotesDir         = "notes"
)

// baseIDRe matches the generated portion of an id: date, time, random suffix.
// A user rename appends a title slug after this base.
var baseIDRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{4}-[0-9a-f]{4}`)

// ConversationData returns the canonical data file path for a conversation.
func ConversationData(id string) string {
	return ConversationsDir + "/" + id + ".yaml"
}

// ConversationPreview returns the generated preview path sharing the
// conversation's stem.
func ConversationPreview(id string) string {
	return ConversationsDir + "/" + id + ".md"
}

// TriggerData returns the canonical data file path for a trigger.
func TriggerData(id string) string {
	return TriggersDir + "/" + id + ".yaml"
}

// RiffData returns the canonical file path for a riff.
func RiffData(id string) string {
	return RiffsDir + "/" + id + ".md"
}

// NoteData returns the file path for a permanent note.
func NoteData(id string) string {
	return NotesDir + "/" + id + ".md"
}

// Data returns the canonical data file path for any entity kind.
func Data(kind models.Kind, id string) string {
	switch kind {
	case models.KindConversation:
		return ConversationData(id)
	case models.KindTrigger:
		return TriggerData(id)
	case models.KindRiff:
		return RiffData(id)
	case models.KindNote:
		return NoteData(id)
	}
	return ""
}

// Parse classifies a vault-relative path into an entity kind and id.
// Unrecognized paths return ok=false. That includes conversation preview
// files, which would otherwise double-notify every save.
func Parse(rel string) (kind models.Kind, id string, ok bool) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	dir, file, found := strings.Cut(rel, "/")
	if !found || strings.Contains(file, "/") {
		return "", "", false
	}

	stem, ext, found := cutExt(file)
	if !found || stem == "" {
		return "", "", false
	}

	switch {
	case dir == ConversationsDir && ext == ".yaml":
		return models.KindConversation, stem, true
	case dir == TriggersDir && ext == ".yaml":
		return models.KindTrigger, stem, true
	case dir == RiffsDir && ext == ".md":
		return models.KindRiff, stem, true
	case dir == NotesDir && ext == ".md":
		return models.KindNote, stem, true
	}
	return "", "", false
}

func cutExt(file string) (stem, ext string, ok bool) {
	i := strings.LastIndex(file, ".")
	if i <= 0 {
		return "", "", false
	}
	return file[:i], file[i:], true
}

// NewID generates an entity id of the form 2024-01-15-1430-abcd.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return now.Format("2006-01-02-1504") + "-" + suffix
}

// RenamedID derives the id an entity takes after a user rename: the
// generated base of the old id with a slug of the new title appended.
// Any slug from a previous rename is stripped first. If the title yields
// no slug the base alone is returned.
func RenamedID(oldID, title string) string {
	base := baseIDRe.FindString(oldID)
	if base == "" {
		base = oldID
	}
	slug := Slugify(title)
	if slug == "" {
		return base
	}
	return base + "-" + slug
}

// Slugify lowercases title and reduces it to hyphen-separated alphanumeric
// runs, capped at 40 characters.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
