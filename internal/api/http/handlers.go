package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mjlescano/playcha/internal/domain/resolution"
	"github.com/mjlescano/playcha/internal/domain/session"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/infrastructure/tracing"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/mjlescano/playcha/internal/shared/types"
	"github.com/mjlescano/playcha/internal/shared/utils"
	"go.uber.org/zap"
)

// Resolver runs request.get and request.post resolutions
type Resolver interface {
	Resolve(ctx context.Context, req resolution.Request) (*resolution.Result, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions     *session.Store
	resolver     Resolver
	defaultProxy *types.ProxyRequest
	version      string
	logger       *logging.Logger
	metrics      *monitoring.Metrics
	now          func() time.Time
}

// NewHandlers creates handlers. defaultProxy may be nil.
func NewHandlers(
	sessions *session.Store,
	resolver Resolver,
	defaultProxy *types.ProxyRequest,
	version string,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		sessions:     sessions,
		resolver:     resolver,
		defaultProxy: defaultProxy,
		version:      version,
		logger:       logger.Named("api"),
		now:          time.Now,
	}
}

// WithMetrics counts dispatched commands
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, types.IndexResponse{
		Msg:     "Playcha is ready!",
		Version: h.version,
	})
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: types.StatusOK})
}

// V1 dispatches a command
func (h *Handlers) V1(c *gin.Context) {
	start := h.now()
	ctx := c.Request.Context()
	log := h.logger.With(tracing.Fields(ctx)...)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxBodySize)

	var req types.V1Request
	var res *types.V1Response
	if err := c.ShouldBindJSON(&req); err != nil {
		res = failure(apperr.InvalidRequest("Invalid request body: %v", err))
	} else {
		log.Info("Incoming request", zap.String("cmd", req.Cmd))
		resp, err := h.dispatch(ctx, &req)
		if err != nil {
			log.Error("Error handling request",
				zap.String("cmd", req.Cmd),
				zap.String("kind", apperr.KindOf(err).String()),
				zap.Error(err))
			resp = failure(err)
		}
		res = resp
	}

	end := h.now()
	res.StartTimestamp = start.UnixMilli()
	res.EndTimestamp = end.UnixMilli()
	res.Version = h.version

	log.Info("Response sent",
		zap.String("status", res.Status),
		zap.Duration("elapsed", end.Sub(start)))
	if h.metrics != nil {
		h.metrics.RecordCommand(commandLabel(req.Cmd), res.Status)
	}

	status := http.StatusOK
	if res.Status == types.StatusError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, res)
}

func failure(err error) *types.V1Response {
	return &types.V1Response{
		Status:  types.StatusError,
		Message: "Error: " + err.Error(),
	}
}

// commandLabel keeps metric cardinality bounded
func commandLabel(cmd string) string {
	switch cmd {
	case types.CmdSessionsCreate, types.CmdSessionsList, types.CmdSessionsDestroy,
		types.CmdRequestGet, types.CmdRequestPost:
		return cmd
	default:
		return "invalid"
	}
}
