package db

import (
	"fmt"
	"strings"

	"github.com/SaiNageswarS/shadowfight-rag/rag"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// LoreChunk is a document of the externally populated lore collection as returned by
// the vector search projection. The embedding itself is never read back.
type LoreChunk struct {
	ID      any     `bson:"_id"`
	Title   string  `bson:"title,omitempty"`
	Text    string  `bson:"text,omitempty"`
	Content string  `bson:"content,omitempty"`
	Score   float64 `bson:"score"`
}

// Id returns the document id as a string whatever its stored type.
func (c LoreChunk) Id() string {
	switch id := c.ID.(type) {
	case nil:
		return ""
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// Body prefers the text field and falls back to content; collections in the wild use
// either name.
func (c LoreChunk) Body() string {
	if text := strings.TrimSpace(c.Text); text != "" {
		return text
	}
	return strings.TrimSpace(c.Content)
}

func (c LoreChunk) ToDocument() rag.RetrievedDocument {
	return rag.RetrievedDocument{
		ID:    c.Id(),
		Title: c.Title,
		Text:  c.Body(),
		Score: c.Score,
	}
}
