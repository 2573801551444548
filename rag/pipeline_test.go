package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeRetriever struct {
	docs   []RetrievedDocument
	err    error
	params SearchParams
}

func (f *fakeRetriever) Search(_ context.Context, _ []float32, params SearchParams) ([]RetrievedDocument, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	// callers may reorder the slice they get back
	return append([]RetrievedDocument(nil), f.docs...), nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func defaultOptions() Options {
	return Options{IndexName: "lore_index", VectorPath: "embedding", TopK: 5, NumCandidates: 200}
}

func loreDocs() []RetrievedDocument {
	return []RetrievedDocument{
		{ID: "a", Text: "Shade fights with twin sai.", Score: 0.61},
		{ID: "b", Text: "Shade is a member of the Legion.", Score: 0.93},
	}
}

func TestPipeline_Answer(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	retriever := &fakeRetriever{docs: loreDocs()}
	generator := &fakeGenerator{answer: "Shade uses **sai**."}
	p := NewPipeline(embedder, retriever, generator, defaultOptions())

	result, err := p.Answer(t.Context(), "<script>alert(1)</script> What weapon does Shade use?")
	require.NoError(t, err)

	assert.Equal(t, "Shade uses **sai**.", result.Answer)
	assert.Equal(t, "alert1 What weapon does Shade use?", result.Query)
	assert.Equal(t, []string{"alert1 What weapon does Shade use?"}, embedder.texts)

	assert.Equal(t, SearchParams{IndexName: "lore_index", Path: "embedding", NumCandidates: 200, Limit: 5}, retriever.params)

	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	assert.NotContains(t, prompt, "<script>")
	assert.Contains(t, prompt, "User Question: alert1 What weapon does Shade use?")
	// highest score first
	assert.Less(t, strings.Index(prompt, "member of the Legion"), strings.Index(prompt, "twin sai"))
	assert.Contains(t, prompt, "Source 1 (Score: 0.9300)")

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "b", result.Sources[0].ID)
}

func TestPipeline_InvalidInput(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	p := NewPipeline(embedder, &fakeRetriever{}, &fakeGenerator{answer: "x"}, defaultOptions())

	for _, raw := range []any{"", "   ", "<b></b>", "{}[]();", 12, nil} {
		_, err := p.Answer(t.Context(), raw)
		require.Error(t, err)
		assert.Equal(t, KindInvalidInput, KindOf(err), "input %v", raw)
	}
	assert.Empty(t, embedder.texts)
}

func TestPipeline_EmptyEmbedding(t *testing.T) {
	generator := &fakeGenerator{answer: "x"}
	p := NewPipeline(&fakeEmbedder{vector: nil}, &fakeRetriever{docs: loreDocs()}, generator, defaultOptions())

	_, err := p.Answer(t.Context(), "Who is Shadow?")

	require.Error(t, err)
	assert.Equal(t, KindEmbeddingFailure, KindOf(err))
	assert.Empty(t, generator.prompts)
}

func TestPipeline_EmbeddingProviderError(t *testing.T) {
	embedder := &fakeEmbedder{err: genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "denied"}}
	p := NewPipeline(embedder, &fakeRetriever{}, &fakeGenerator{}, defaultOptions())

	_, err := p.Answer(t.Context(), "Who is Shadow?")

	assert.Equal(t, KindUpstreamAuth, KindOf(err))
	var pipelineErr *Error
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, "embed", pipelineErr.Op)
	assert.Equal(t, "PERMISSION_DENIED", pipelineErr.Upstream.Status)
}

func TestPipeline_RetrievalEmpty_Degrades(t *testing.T) {
	generator := &fakeGenerator{answer: "I don't have enough information to answer that."}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 2}}, &fakeRetriever{}, generator, defaultOptions())

	result, err := p.Answer(t.Context(), "Who is June?")

	require.NoError(t, err)
	assert.Equal(t, "I don't have enough information to answer that.", result.Answer)
	assert.Empty(t, result.Sources)
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], noContextMarker)
}

func TestPipeline_RetrievalEmpty_Strict(t *testing.T) {
	opts := defaultOptions()
	opts.StrictRetrieval = true
	generator := &fakeGenerator{answer: "x"}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 2}}, &fakeRetriever{}, generator, opts)

	_, err := p.Answer(t.Context(), "Who is June?")

	assert.Equal(t, KindRetrievalEmpty, KindOf(err))
	assert.Empty(t, generator.prompts)
}

func TestPipeline_RetrievalError(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector search: server selection error: connection refused")}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1}}, retriever, &fakeGenerator{answer: "x"}, defaultOptions())

	_, err := p.Answer(t.Context(), "Who is Kate?")

	assert.Equal(t, KindUnclassified, KindOf(err))
}

func TestPipeline_CapsResultsAtTopK(t *testing.T) {
	docs := make([]RetrievedDocument, 0, 8)
	for i := range 8 {
		docs = append(docs, RetrievedDocument{ID: fmt.Sprint(i), Text: fmt.Sprintf("doc %d", i), Score: float64(i) / 10})
	}
	opts := defaultOptions()
	opts.TopK = 3
	p := NewPipeline(&fakeEmbedder{vector: []float32{1}}, &fakeRetriever{docs: docs}, &fakeGenerator{answer: "ok"}, opts)

	result, err := p.Answer(t.Context(), "list docs")

	require.NoError(t, err)
	require.Len(t, result.Sources, 3)
	assert.Equal(t, []string{"7", "6", "5"}, []string{result.Sources[0].ID, result.Sources[1].ID, result.Sources[2].ID})
}

func TestPipeline_GenerationCapacity(t *testing.T) {
	generator := &fakeGenerator{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1}}, &fakeRetriever{docs: loreDocs()}, generator, defaultOptions())

	_, err := p.Answer(t.Context(), "Who is Shade?")

	assert.Equal(t, KindUpstreamCapacity, KindOf(err))
}

func TestPipeline_GenerationEmptyText(t *testing.T) {
	for _, answer := range []string{"", "  \n "} {
		p := NewPipeline(&fakeEmbedder{vector: []float32{1}}, &fakeRetriever{docs: loreDocs()}, &fakeGenerator{answer: answer}, defaultOptions())

		_, err := p.Answer(t.Context(), "Who is Shade?")

		assert.Equal(t, KindGenerationFailure, KindOf(err))
	}
}

func TestPipeline_DeadlineSharedAcrossSteps(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	generator := &fakeGenerator{err: fmt.Errorf("post: %w", ctx.Err())}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1}}, &fakeRetriever{docs: loreDocs()}, generator, defaultOptions())

	_, err := p.Answer(ctx, "Who is Shade?")

	assert.Equal(t, KindUpstreamCapacity, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPipeline_NormalisesOptions(t *testing.T) {
	p := NewPipeline(nil, nil, nil, Options{TopK: 0, NumCandidates: 1})

	assert.Equal(t, 5, p.Options().TopK)
	assert.Equal(t, 5, p.Options().NumCandidates)
}

// echoGenerator answers with the prompt's question so each caller can check it got
// its own answer back.
type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	idx := strings.LastIndex(prompt, "User Question: ")
	return "answer to " + prompt[idx+len("User Question: "):], nil
}

type echoEmbedder struct{}

func (echoEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func TestPipeline_ConcurrentRequestsAreIsolated(t *testing.T) {
	p := NewPipeline(echoEmbedder{}, &concurrentRetriever{}, echoGenerator{}, defaultOptions())

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			question := fmt.Sprintf("Question number %d about Shadow", i)
			result, err := p.Answer(context.Background(), question)
			if err != nil {
				errs <- err
				return
			}
			if result.Answer != "answer to "+question || result.Query != question {
				errs <- fmt.Errorf("request %d got %q for %q", i, result.Answer, result.Query)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// concurrentRetriever derives its hit from the vector so nothing is shared.
type concurrentRetriever struct{}

func (*concurrentRetriever) Search(_ context.Context, vector []float32, _ SearchParams) ([]RetrievedDocument, error) {
	return []RetrievedDocument{{ID: fmt.Sprint(vector[0]), Text: "lore", Score: 0.5}}, nil
}
