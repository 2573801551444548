package controller

import (
	"context"
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/server"
	"github.com/SaiNageswarS/shadowfight-rag/appconfig"
	"github.com/SaiNageswarS/shadowfight-rag/middleware"
	"github.com/SaiNageswarS/shadowfight-rag/model"
	"go.uber.org/zap"
)

// TitleLister lists the titles of the documents in the lore collection.
type TitleLister interface {
	DistinctTitles(ctx context.Context) ([]string, error)
}

type MetadataController struct {
	store  TitleLister
	apiKey string
}

func ProvideMetadataController(store TitleLister, cfg *appconfig.AppConfig) *MetadataController {
	return NewMetadataController(store, cfg.ServiceAPIKey)
}

func NewMetadataController(store TitleLister, apiKey string) *MetadataController {
	return &MetadataController{
		store:  store,
		apiKey: apiKey,
	}
}

func (mc *MetadataController) ListSources(w http.ResponseWriter, r *http.Request) {
	titles, err := mc.store.DistinctTitles(r.Context())
	if err != nil {
		logger.Error("Failed to fetch sources", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to fetch sources"})
		return
	}

	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, model.SourcesResponse{Sources: titles})
}

func (mc *MetadataController) Routes() []server.Route {
	return []server.Route{
		{
			Pattern: "/metadata/sources",
			Method:  http.MethodGet,
			Handler: middleware.APIKeyAuthMiddleware(mc.apiKey, mc.ListSources),
		},
	}
}
