package deployments

import (
	"github.com/coderunner/coderunner/api/internal/orchestrator"
)

// Handler exposes deployment lifecycle operations over HTTP
type Handler struct {
	service *orchestrator.Service
	store   orchestrator.DeploymentStore
	logs    orchestrator.LogBuffer
	fetch   orchestrator.SourceFetcher
}

func NewHandler(service *orchestrator.Service, store orchestrator.DeploymentStore, logs orchestrator.LogBuffer, fetch orchestrator.SourceFetcher) *Handler {
	return &Handler{service: service, store: store, logs: logs, fetch: fetch}
}
