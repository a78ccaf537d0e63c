//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/repositories"
	"github.com/BradenHooton/visaqr/tests/integration"
)

var testDB *integration.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = integration.SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func newCode(token, subjectID, page string, ttl time.Duration) *models.QRCode {
	now := time.Now().UTC()
	return &models.QRCode{
		Token:     token,
		SubjectID: subjectID,
		Page:      page,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestQRCodeRepository_IssueSupersedesActive(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := repositories.NewQRCodeRepository(testDB.DB)

	first, invalidated, err := repo.Issue(ctx, newCode("tok-1", "app-1", "visa", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), invalidated)
	assert.Equal(t, models.QRStatusActive, first.Status)
	assert.NotEmpty(t, first.ID)

	_, invalidated, err = repo.Issue(ctx, newCode("tok-2", "app-1", "visa", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), invalidated)

	old, err := repo.GetByTokenAndPage(ctx, "tok-1", "visa")
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusInvalidated, old.Status)

	active, err := repo.GetActive(ctx, "app-1", "visa", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", active.Token)
}

func TestQRCodeRepository_ConcurrentIssueLeavesOneActive(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := repositories.NewQRCodeRepository(testDB.DB)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = repo.Issue(ctx, newCode(fmt.Sprintf("tok-%02d", i), "app-1", "visa", time.Minute))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}

	n, err := integration.CountQRCodes(ctx, testDB.Pool, "app-1", "visa", models.QRStatusActive)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = integration.CountQRCodes(ctx, testDB.Pool, "app-1", "visa", models.QRStatusInvalidated)
	require.NoError(t, err)
	assert.Equal(t, workers-1, n)
}

func TestQRCodeRepository_ConsumeOnce(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := repositories.NewQRCodeRepository(testDB.DB)

	_, _, err := repo.Issue(ctx, newCode("tok-1", "app-1", "visa", time.Minute))
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = repo.Consume(ctx, "tok-1", "visa", "app-1", time.Now())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, models.ErrQRCodeInvalid)
		}
	}
	assert.Equal(t, 1, wins)

	code, err := repo.GetByTokenAndPage(ctx, "tok-1", "visa")
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusUsed, code.Status)
	assert.NotNil(t, code.UsedAt)

	used, err := repo.HasUsed(ctx, "app-1", "visa")
	require.NoError(t, err)
	assert.True(t, used)

	_, _, err = repo.Issue(ctx, newCode("tok-2", "app-1", "visa", time.Minute))
	assert.ErrorIs(t, err, models.ErrQRCodeUsed)
}

func TestQRCodeRepository_ConsumeMismatches(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := repositories.NewQRCodeRepository(testDB.DB)

	_, _, err := repo.Issue(ctx, newCode("tok-1", "app-1", "visa", time.Minute))
	require.NoError(t, err)

	tests := []struct {
		name                 string
		token, page, subject string
		now                  time.Time
	}{
		{"wrong page", "tok-1", "passport", "app-1", time.Now()},
		{"wrong subject", "tok-1", "visa", "app-2", time.Now()},
		{"unknown token", "tok-x", "visa", "app-1", time.Now()},
		{"after expiry", "tok-1", "visa", "app-1", time.Now().Add(2 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Consume(ctx, tt.token, tt.page, tt.subject, tt.now)
			assert.ErrorIs(t, err, models.ErrQRCodeInvalid)
		})
	}

	// Still consumable by the right caller
	_, err = repo.Consume(ctx, "tok-1", "visa", "app-1", time.Now())
	assert.NoError(t, err)
}

func TestQRCodeRepository_DeleteStale(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := repositories.NewQRCodeRepository(testDB.DB)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	require.NoError(t, integration.SeedQRCode(ctx, testDB.Pool, "used", "app-1", "a", models.QRStatusUsed, future))
	require.NoError(t, integration.SeedQRCode(ctx, testDB.Pool, "invalidated", "app-1", "b", models.QRStatusInvalidated, future))
	require.NoError(t, integration.SeedQRCode(ctx, testDB.Pool, "expired", "app-1", "c", models.QRStatusActive, past))
	require.NoError(t, integration.SeedQRCode(ctx, testDB.Pool, "live", "app-1", "d", models.QRStatusActive, future))

	deleted, err := repo.DeleteStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	live, err := repo.GetByTokenAndPage(ctx, "live", "d")
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusActive, live.Status)

	deleted, err = repo.DeleteStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestQRCodeRepository_OneActivePerPairIndex(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	require.NoError(t, integration.SeedQRCode(ctx, testDB.Pool, "a1", "app-1", "visa", models.QRStatusActive, future))
	err := integration.SeedQRCode(ctx, testDB.Pool, "a2", "app-1", "visa", models.QRStatusActive, future)
	assert.Error(t, err)
}
