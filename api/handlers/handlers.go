package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/devadigapratham/filavault/importer"
	"github.com/devadigapratham/filavault/preset"
	"github.com/devadigapratham/filavault/raft"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Cluster is the replicated state the handlers read from and propose to
type Cluster interface {
	Apply(cmd *models.Command) (any, error)
	GetFSM() *raft.FSM
	Leader() bool
	LeaderAddress() string
	State() string
}

// Options tune the handler
type Options struct {
	// MaxUploadBytes bounds preset uploads
	MaxUploadBytes int64
	// ImportsPerMinute limits preset uploads; zero disables the limit
	ImportsPerMinute int
}

// Handler represents the API handlers
type Handler struct {
	Node     Cluster
	Store    *raft.Store
	Importer *importer.Importer
	Logger   *zap.Logger

	// NewID and Now resolve everything non-deterministic before a command
	// is proposed to the log
	NewID func() string
	Now   func() time.Time

	maxUpload     int64
	importLimiter *rate.Limiter
}

// NewHandler creates a new Handler
func NewHandler(node Cluster, store *raft.Store, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}

	h := &Handler{
		Node:      node,
		Store:     store,
		Logger:    logger,
		NewID:     uuid.NewString,
		Now:       time.Now,
		maxUpload: opts.MaxUploadBytes,
	}
	h.Importer = importer.New(&preset.Normalizer{
		NewID: func() string { return h.NewID() },
		Now:   func() time.Time { return h.Now() },
	}, logger.Named("importer"))

	if opts.ImportsPerMinute > 0 {
		h.importLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.ImportsPerMinute)), opts.ImportsPerMinute)
	}
	return h
}

// RaftLeaderMiddleware rejects writes on followers with the leader's address
func (h *Handler) RaftLeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to write operations
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			if !h.Node.Leader() {
				c.JSON(http.StatusConflict, gin.H{
					"error":  "not the leader",
					"leader": h.Node.LeaderAddress(),
				})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequestLogger logs every request through zap
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

// Status reports this node's view of the cluster
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"is_leader":   h.Node.Leader(),
		"leader_addr": h.Node.LeaderAddress(),
		"state":       h.Node.State(),
		"presets":     len(h.Node.GetFSM().GetPresets()),
		"filaments":   len(h.Node.GetFSM().GetFilaments()),
	})
}

func (h *Handler) timestamp() string {
	return models.Timestamp(h.Now())
}

// apply proposes cmd and writes the error response when it fails
func (h *Handler) apply(c *gin.Context, cmd *models.Command, failStatus int) (any, bool) {
	res, err := h.Node.Apply(cmd)
	if err != nil {
		status := failStatus
		if errors.Is(err, raft.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.Logger.Warn("command rejected", zap.String("type", string(cmd.Type)), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return res, true
}

func updatedCount(res any) int {
	if r, ok := res.(raft.ApplyResult); ok {
		return r.Updated
	}
	return 0
}
