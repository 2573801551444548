package mcp

import (
	"context"
	"errors"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/shadowfight-rag/rag"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	serverName    = "shadowfight-lore"
	serverVersion = "1.0.0"
	askLoreTool   = "ask_lore"
)

// Answerer runs the retrieval pipeline for one query.
type Answerer interface {
	Answer(ctx context.Context, raw any) (*rag.Result, error)
}

type AskLoreInput struct {
	Query string `json:"query" jsonschema:"a question about Shadow Fight characters, weapons or story"`
}

type AskLoreOutput struct {
	Answer  string                  `json:"answer"`
	Sources []rag.RetrievedDocument `json:"sources"`
}

// LoreTool exposes the pipeline as an MCP tool so agents can ask lore questions.
type LoreTool struct {
	pipeline Answerer
}

func NewLoreTool(pipeline Answerer) *LoreTool {
	return &LoreTool{pipeline: pipeline}
}

func (t *LoreTool) Run(ctx context.Context, _ *mcpsdk.CallToolRequest, in AskLoreInput) (*mcpsdk.CallToolResult, AskLoreOutput, error) {
	result, err := t.pipeline.Answer(ctx, in.Query)
	if err != nil {
		kind := rag.KindOf(err)
		logger.Error("ask_lore tool failed", zap.String("kind", kind.String()), zap.Error(err))
		// callers only ever see the public message
		return nil, AskLoreOutput{}, errors.New(kind.PublicMessage())
	}

	sources := result.Sources
	if sources == nil {
		sources = []rag.RetrievedDocument{}
	}
	return nil, AskLoreOutput{Answer: result.Answer, Sources: sources}, nil
}

// Implementation identifies this service to MCP clients.
func Implementation() *mcpsdk.Implementation {
	return &mcpsdk.Implementation{Name: serverName, Version: serverVersion}
}

// ProvideLoreTool is the MCP configurator factory resolved by the server builder.
func ProvideLoreTool(pipeline *rag.Pipeline) *LoreTool {
	return NewLoreTool(pipeline)
}

// ConfigureMCP registers the ask_lore tool on s.
func (t *LoreTool) ConfigureMCP(s *mcpsdk.Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        askLoreTool,
		Description: "Answer a question about Shadow Fight lore using only the indexed lore documents.",
	}, t.Run)
}
