package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
)

func TestNewPostgresRequiresDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
	assert.Nil(t, pg)
}

func TestRunMigrationsRequiresPool(t *testing.T) {
	err := RunMigrations(context.Background(), nil, zap.NewNop())

	require.Error(t, err)
}
