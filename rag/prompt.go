package rag

import (
	"fmt"
	"strings"
)

// RetrievedDocument is one hit from the vector search, higher Score is more relevant.
type RetrievedDocument struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

const noContextMarker = "(no matching lore was found)"

const promptTemplate = `You are a lore expert for the Shadow Fight game series.
Answer the user's question using ONLY the context below. Do not use any outside knowledge.
If the context does not contain the answer, say that you don't have enough information to answer.
Format the answer in Markdown.

Context:
%s

User Question: %s`

// FormatContext renders the documents as "Source <i> (Score: <score>): <text>" entries
// separated by a blank line.
func FormatContext(docs []RetrievedDocument) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("Source %d (Score: %.4f): %s", i+1, doc.Score, strings.TrimSpace(doc.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt embeds the retrieved context and the sanitized question in the
// instruction template.
func BuildPrompt(docs []RetrievedDocument, query string) string {
	context := FormatContext(docs)
	if context == "" {
		context = noContextMarker
	}
	return fmt.Sprintf(promptTemplate, context, query)
}
