package cli

import (
	"context"
	"time"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/axellelanca/linkshortener/internal/repository"
	"github.com/axellelanca/linkshortener/internal/services"
)

const commandTimeout = 10 * time.Second

// openLinkService connects to the configured store for a one-shot command.
// The caller must invoke the returned close function.
func openLinkService(ctx context.Context) (*services.LinkService, func(), error) {
	store, err := repository.Open(ctx, cmd.Cfg, cmd.Logger, true)
	if err != nil {
		return nil, nil, err
	}

	linkService := services.NewLinkService(store.Links,
		services.WithCodeLength(cmd.Cfg.Shortener.CodeLength),
		services.WithMaxAttempts(cmd.Cfg.Shortener.MaxAttempts),
		services.WithStoreTimeout(cmd.Cfg.Shortener.StoreTimeout),
		services.WithLogger(cmd.Logger),
	)
	closeStore := func() {
		if err := store.Close(); err != nil {
			cmd.Logger.Warn("failed to close link store", "error", err)
		}
	}
	return linkService, closeStore, nil
}
