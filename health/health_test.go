package health_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"photosearch/cache/memory"
	"photosearch/database"
	"photosearch/health"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, data []byte) error {
	return errors.New("connection refused")
}

func (brokenCache) Shutdown() {}

func TestHealth(t *testing.T) {
	log := zap.NewNop().Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	defer db.Close()

	closedDB, err := database.InitDatabase(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, closedDB.Close())

	tests := []struct {
		Name           string
		ExpectedStatus health.Status
		Checker        *health.Checker
	}{
		{
			Name:           "runs checks and returns correct status",
			ExpectedStatus: health.Status{Healthy: true, Cache: "healthy", Database: "healthy"},
			Checker:        &health.Checker{Ctx: ctx, Database: db, Cache: memory.New(0), Log: log},
		},
		{
			Name:           "runs checks and returns correct status with broken cache",
			ExpectedStatus: health.Status{Healthy: false, Cache: "unhealthy", Database: "healthy"},
			Checker:        &health.Checker{Ctx: ctx, Database: db, Cache: brokenCache{}, Log: log},
		},
		{
			Name:           "runs checks and returns correct status with broken database",
			ExpectedStatus: health.Status{Healthy: false, Database: "unhealthy"},
			Checker:        &health.Checker{Ctx: ctx, Database: closedDB, Log: log},
		},
		{
			Name:           "runs checks with nothing to check",
			ExpectedStatus: health.Status{Healthy: true},
			Checker:        &health.Checker{Ctx: ctx, Log: log},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			test.Checker.Run()
			assert.Equal(t, test.ExpectedStatus, test.Checker.Status())
		})
	}
}

func TestHealthCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := &health.Checker{Ctx: ctx, Cache: memory.New(0), Log: zap.NewNop().Sugar()}
	checker.Run()

	assert.False(t, checker.Status().Healthy)
}
