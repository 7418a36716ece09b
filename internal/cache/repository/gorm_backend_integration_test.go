//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresConnection(&config.Config{DatabaseURL: connStr, AppEnv: "test"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &cachedomain.CachedSearch{}))
	return db
}

func TestPostgresConcurrentPutsKeepOneRow(t *testing.T) {
	db := setupPostgres(t)
	b := NewGormBackend(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- b.Put(ctx, entry("shoes", base.Add(time.Duration(i)*time.Second), time.Hour))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&cachedomain.CachedSearch{}).Where("cache_key = ?", "shoes").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostgresPurgeRunsInBatches(t *testing.T) {
	db := setupPostgres(t)
	b := NewGormBackend(db)
	ctx := context.Background()

	for i := 0; i < PurgeBatchSize*2+17; i++ {
		require.NoError(t, b.Put(ctx, entry(fmt.Sprintf("old-%d", i), base.Add(-48*time.Hour), 24*time.Hour)))
	}
	require.NoError(t, b.Put(ctx, entry("live", base, time.Hour)))

	n, err := b.PurgeExpired(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(PurgeBatchSize*2+17), n)

	got, err := b.Get(ctx, "live", base)
	require.NoError(t, err)
	require.NotNil(t, got)
}
