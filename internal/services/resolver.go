package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/axellelanca/linkshortener/internal/models"
	"github.com/axellelanca/linkshortener/internal/repository"
)

// ClickRecorder accepts one click per successful resolution. Record must return
// promptly whatever the state of the store.
type ClickRecorder interface {
	Record(code string)
}

// Resolver turns codes back into target URLs and records the visit.
type Resolver struct {
	linkRepo     repository.LinkRepository
	clicks       ClickRecorder
	storeTimeout time.Duration
	logger       *slog.Logger
}

func NewResolver(linkRepo repository.LinkRepository, clicks ClickRecorder, storeTimeout time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		linkRepo:     linkRepo,
		clicks:       clicks,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Resolve returns the stored URL for code, unchanged, and records one click.
// Unknown codes return ErrLinkNotFound and record nothing.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
	if !ValidCode(code) {
		return "", customerrors.ErrLinkNotFound
	}

	link, err := r.fetch(ctx, code)
	if err != nil {
		return "", err
	}

	r.clicks.Record(code)
	logging.FromContext(ctx, r.logger).Debug("link resolved", "code", code)
	return link.URL, nil
}

// GetStats returns the link with its click metrics. It has no side effects.
func (r *Resolver) GetStats(ctx context.Context, code string) (*models.Link, error) {
	return r.fetch(ctx, code)
}

func (r *Resolver) fetch(ctx context.Context, code string) (*models.Link, error) {
	if r.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.storeTimeout)
		defer cancel()
	}

	link, err := r.linkRepo.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, customerrors.ErrLinkNotFound) {
			return nil, customerrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to resolve %s: %w", code, err)
	}
	return link, nil
}
