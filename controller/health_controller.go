package controller

import (
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/server"
	"go.uber.org/zap"
)

const livenessMessage = "Shadow Fight lore RAG service is running."

type HealthController struct {
}

func ProvideHealthController() *HealthController {
	return &HealthController{}
}

// HandleRoot answers GET / with a plain-text liveness message.
func (hc *HealthController) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(livenessMessage)); err != nil {
		logger.Error("Failed to write liveness response", zap.Error(err))
	}
}

func (hc *HealthController) Routes() []server.Route {
	return []server.Route{
		{
			Pattern: "/{$}",
			Method:  http.MethodGet,
			Handler: hc.HandleRoot,
		},
	}
}
