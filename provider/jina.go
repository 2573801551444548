package provider

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/embed"
	"github.com/SaiNageswarS/go-collection-boot/async"
)

// JinaEmbedder adapts the go-api-boot Jina AI client to rag.Embedder.
type JinaEmbedder struct {
	embedder embed.Embedder
}

func NewJinaEmbedder(embedder embed.Embedder) *JinaEmbedder {
	return &JinaEmbedder{embedder: embedder}
}

func (j *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return async.Await(j.embedder.GetEmbedding(ctx, text, embed.WithRetrievalQueryTask()))
}
