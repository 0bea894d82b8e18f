package scaling

import (
	"github.com/coderunner/coderunner/api/internal/autoscaler"
)

// Handler exposes the autoscaling decision engine over HTTP
type Handler struct {
	service *autoscaler.Service
}

func NewHandler(service *autoscaler.Service) *Handler {
	return &Handler{service: service}
}
