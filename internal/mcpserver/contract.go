package mcpserver

// EntityFormatContract describes the canonical vault file formats that
// LLM consumers should follow when reading or writing entities.
const EntityFormatContract = `# Vellum Entity Format Contract

Every entity stored in a Vellum vault follows one of these formats.

## Ids

Entity ids look like ` + "`" + `2025-01-20-1430-a3f2` + "`" + `: a creation timestamp plus a
short random suffix. A renamed entity carries a title slug after the base id,
e.g. ` + "`" + `2025-01-20-1430-a3f2-trip-planning` + "`" + `. Never invent ids; they are
assigned at creation.

## Conversations (conversations/<id>.yaml)

` + "```" + `yaml
id: 2025-01-20-1430-a3f2
created: 2025-01-20T14:30:00Z
updated: 2025-01-20T14:35:12Z
model: sonnet
title: Trip planning
messages:
  - role: user
    timestamp: 2025-01-20T14:30:05Z
    content: Help me plan a trip
  - role: assistant
    timestamp: 2025-01-20T14:30:19Z
    content: Happy to. Where to?
` + "```" + `

The sibling ` + "`" + `conversations/<id>.md` + "`" + ` file is a generated preview.
Never write it; it is overwritten on every save.

## Triggers (triggers/<id>.yaml)

Same YAML shape plus ` + "`" + `enabled` + "`" + `, ` + "`" + `triggerPrompt` + "`" + `,
` + "`" + `intervalMinutes` + "`" + `, and scheduler bookkeeping
(` + "`" + `lastChecked` + "`" + `, ` + "`" + `lastTriggered` + "`" + `, ` + "`" + `history` + "`" + `).

## Riffs (riffs/<id>.md)

YAML frontmatter followed by a Markdown body:

` + "```" + `markdown
---
id: 2025-01-20-1430-a3f2
created: 2025-01-20T14:30:00Z
updated: 2025-01-20T14:35:12Z
integrated: false
artifactType: essay
comments:
  - id: 1a2b3c4d
    timestamp: 2025-01-20T14:33:00Z
    anchor:
      paragraphIndex: 1
      snippet: First line of the paragraph
    content: expand this
---

# Draft Title

Body paragraphs separated by blank lines.
` + "```" + `

## Rules

1. **Never edit frontmatter by hand when updating a body.** Use the
   update_riff_body tool; it preserves metadata written since your read.
2. **Paragraphs** are blocks separated by blank lines. Comment anchors use
   zero-based paragraph indices.
3. **Encoding** is UTF-8 with a trailing newline.
4. **Notes** (notes/<name>.md) are plain Markdown, named by slug rather
   than by id. An integrated riff's note carries a provenance comment on
   its first line.
`
