package rag

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchParams are the arguments of one approximate nearest neighbour query.
type SearchParams struct {
	IndexName     string
	Path          string
	NumCandidates int
	Limit         int
}

// Retriever runs the vector search against the lore collection.
type Retriever interface {
	Search(ctx context.Context, vector []float32, params SearchParams) ([]RetrievedDocument, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configure the retrieval step.
type Options struct {
	IndexName     string
	VectorPath    string
	TopK          int
	NumCandidates int
	// StrictRetrieval fails with KindRetrievalEmpty when nothing matches instead of
	// generating from an empty context.
	StrictRetrieval bool
}

// Result is the outcome of one successful query.
type Result struct {
	Query   string
	Answer  string
	Sources []RetrievedDocument
}

// Pipeline runs sanitize -> embed -> retrieve -> prompt -> generate. It holds no
// per-request state and is safe for concurrent use as long as its collaborators are.
type Pipeline struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	opts      Options
}

func NewPipeline(embedder Embedder, retriever Retriever, generator Generator, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.NumCandidates < opts.TopK {
		opts.NumCandidates = opts.TopK
	}
	return &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		opts:      opts,
	}
}

func (p *Pipeline) Options() Options { return p.opts }

// Answer runs the whole pipeline for one raw query. Every step shares ctx, so a single
// deadline bounds embed, retrieve and generate together. Failures are returned as *Error.
func (p *Pipeline) Answer(ctx context.Context, raw any) (*Result, error) {
	query := Sanitize(raw)
	if query == "" {
		return nil, newError(KindInvalidInput, "sanitize", nil)
	}

	vector, err := p.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := p.retrieve(ctx, vector)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(docs, query)

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, upstreamError("generate", err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, newError(KindGenerationFailure, "generate", errors.New("empty response from generation provider"))
	}

	return &Result{Query: query, Answer: answer, Sources: docs}, nil
}

func (p *Pipeline) embed(ctx context.Context, query string) ([]float32, error) {
	logger.Info("Getting embedding for query", zap.String("queryInput", query))

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, upstreamError("embed", err)
	}
	if len(vector) == 0 {
		return nil, newError(KindEmbeddingFailure, "embed", errors.New("empty embedding returned"))
	}
	return vector, nil
}

func (p *Pipeline) retrieve(ctx context.Context, vector []float32) ([]RetrievedDocument, error) {
	docs, err := p.retriever.Search(ctx, vector, SearchParams{
		IndexName:     p.opts.IndexName,
		Path:          p.opts.VectorPath,
		NumCandidates: p.opts.NumCandidates,
		Limit:         p.opts.TopK,
	})
	if err != nil {
		// database failures always surface as a plain internal error
		return nil, &Error{Kind: KindUnclassified, Op: "retrieve", Upstream: Describe(err), Err: err}
	}

	if len(docs) == 0 {
		if p.opts.StrictRetrieval {
			return nil, newError(KindRetrievalEmpty, "retrieve", nil)
		}
		logger.Info("No documents matched, answering without context")
		return nil, nil
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > p.opts.TopK {
		docs = docs[:p.opts.TopK]
	}

	logger.Info("Retrieved lore documents", zap.Int("count", len(docs)), zap.Float64("topScore", docs[0].Score))
	return docs, nil
}
