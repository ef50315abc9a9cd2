package routing

import (
	"relay/internal/config_handler"
	"relay/internal/logger"
	"relay/pkg/models"
)

type Handler = config_handler.Handler

func NewHandler(service *Service, log logger.Logger) *Handler {
	return config_handler.NewHandlerWithReloader(
		models.EventTypeRoutingRuleUpdated,
		models.ServiceTypeRouting,
		service,
		log,
	)
}
