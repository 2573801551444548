package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/server"
	"github.com/SaiNageswarS/shadowfight-rag/appconfig"
	"github.com/SaiNageswarS/shadowfight-rag/model"
	"github.com/SaiNageswarS/shadowfight-rag/rag"
	"go.uber.org/zap"
)

const maxQueryBodyBytes = 64 << 10

// Answerer runs the retrieval pipeline for one query.
type Answerer interface {
	Answer(ctx context.Context, raw any) (*rag.Result, error)
}

// QueryController handles HTTP requests for query operations
type QueryController struct {
	pipeline Answerer
	timeout  time.Duration
}

// ProvideQueryController creates a new QueryController instance
func ProvideQueryController(pipeline *rag.Pipeline, cfg *appconfig.AppConfig) *QueryController {
	return NewQueryController(pipeline, cfg.RequestTimeout)
}

func NewQueryController(pipeline Answerer, timeout time.Duration) *QueryController {
	return &QueryController{
		pipeline: pipeline,
		timeout:  timeout,
	}
}

// HandleQuery handles POST /query. CORS and preflight are handled by the server's CORS
// wrapper before the request gets here.
func (c *QueryController) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		logger.Error("Failed to decode request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request payload"})
		return
	}

	// one deadline for embed, retrieve and generate together
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.pipeline.Answer(ctx, req.Query)
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.QueryResponse{Response: result.Answer})

	logger.Info("Query processed successfully",
		zap.String("query", result.Query),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("elapsed", time.Since(start)))
}

func (c *QueryController) writeError(w http.ResponseWriter, err error) {
	kind := rag.KindOf(err)

	fields := []zap.Field{zap.String("kind", kind.String()), zap.Error(err)}
	var pipelineErr *rag.Error
	if errors.As(err, &pipelineErr) {
		fields = append(fields,
			zap.String("op", pipelineErr.Op),
			zap.String("upstreamStatus", pipelineErr.Upstream.Status),
			zap.Int("upstreamCode", pipelineErr.Upstream.HTTPCode))
	}

	switch kind {
	case rag.KindInvalidInput:
		logger.Info("Rejected query", fields...)
		writeJSON(w, kind.HTTPStatus(), model.ErrorResponse{Error: kind.ErrorLabel()})
	case rag.KindRetrievalEmpty:
		logger.Info("No lore matched query", fields...)
		writeJSON(w, kind.HTTPStatus(), model.QueryResponse{Response: kind.PublicMessage()})
	default:
		logger.Error("Query failed", fields...)
		writeJSON(w, kind.HTTPStatus(), model.ErrorResponse{
			Error:   kind.ErrorLabel(),
			Message: kind.PublicMessage(),
		})
	}
}

func (c *QueryController) Routes() []server.Route {
	return []server.Route{
		{
			Pattern: "/query",
			Method:  http.MethodPost,
			Handler: c.HandleQuery,
		},
	}
}
