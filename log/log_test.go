package log_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/node/log"
)

func TestSetLevelFiltersDebug(t *testing.T) {
	log.SetLevel(slog.LevelInfo)
	defer log.SetLevel(slog.LevelInfo)

	require.False(t, log.With().Enabled(context.Background(), slog.LevelDebug))
	require.NotPanics(t, func() {
		log.Debug("should be filtered at info level")
		log.SetLevel(slog.LevelDebug)
		log.Debug("should now pass through")
	})
	require.True(t, log.With().Enabled(context.Background(), slog.LevelDebug))
}

func TestWithAttachesArgsWithoutPanicking(t *testing.T) {
	logger := log.With("peer", "127.0.0.1:9000")
	require.NotPanics(t, func() {
		logger.Info("peer registered")
	})
}
