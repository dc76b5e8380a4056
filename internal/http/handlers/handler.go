package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"zingo/backend/internal/config"
	"zingo/backend/internal/rate"
	"zingo/backend/internal/repository"
	"zingo/backend/internal/scrape/ingest"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	repo        *repository.Repository
	ingest      *ingest.Service
	cfg         *config.Config
	logger      *slog.Logger
	validator   *validator.Validate
	syncLimiter *rate.WindowLimiter
}

func New(repo *repository.Repository, ingestService *ingest.Service, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:        repo,
		ingest:      ingestService,
		cfg:         cfg,
		logger:      logger,
		validator:   validator.New(),
		syncLimiter: rate.NewWindowLimiter(4, time.Minute),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}
