package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/pkg/response"
	"github.com/rs/zerolog/log"
)

// GinHandlers contains HTTP handlers for the read-only views
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for dashboard endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// QueueHandler handles GET requests listing one queue
func (h *GinHandlers) QueueHandler(q queue.Name) gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.Queue(q) })
}

// SnapshotHandler handles GET requests for the open positions table
func (h *GinHandlers) SnapshotHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.Snapshot() })
}

// TicketsHandler handles GET requests for the drop and modify selectors
func (h *GinHandlers) TicketsHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.Tickets() })
}

// AccountProfitHandler handles GET requests for the floating profit
func (h *GinHandlers) AccountProfitHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.AccountProfit() })
}

// HistoryProfitHandler handles GET requests for the total net profit
func (h *GinHandlers) HistoryProfitHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.HistoryProfit() })
}

// AccountStatusHandler handles GET requests for the raw account and market logs
func (h *GinHandlers) AccountStatusHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.AccountStatus() })
}

// HistoryStatusHandler handles GET requests for the raw order history log
func (h *GinHandlers) HistoryStatusHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.HistoryStatus() })
}

// DashboardHandler handles GET requests for every view at once
func (h *GinHandlers) DashboardHandler() gin.HandlerFunc {
	return view(func() (interface{}, error) { return h.service.Dashboard() })
}

func view(load func() (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := load()
		if err != nil {
			log.Error().Err(err).Str("path", c.FullPath()).Msg("failed to build view")
			response.InternalError(c, "Failed to read terminal files")
			return
		}
		response.Success(c, data)
	}
}
