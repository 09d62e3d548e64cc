package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	body := "entries:\n  - {vectorId: 42, id: 7, category: Hours, question: What time do parks open?, answer: Parks typically open at 9am.}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return &config.Config{
		FAQ:     config.FAQConfig{SeedPath: path},
		Mapping: config.MappingConfig{Backend: config.MappingBackendPostgres},
	}
}

func TestStoresFailWithoutPostgresOrSeed(t *testing.T) {
	cfg := &config.Config{Mapping: config.MappingConfig{Backend: config.MappingBackendPostgres}}
	logger := testLogger()

	seed, err := provideSeed(cfg, logger)
	require.NoError(t, err)
	require.Nil(t, seed)

	_, _, err = provideMappingStore(cfg, nil, seed, logger)
	require.Error(t, err)
	_, err = provideRecordStore(nil, seed, logger)
	require.Error(t, err)

	cfg.Mapping.Backend = config.MappingBackendMemory
	_, _, err = provideMappingStore(cfg, nil, seed, logger)
	require.Error(t, err)
}

func TestStoresServeSeedWithoutPostgres(t *testing.T) {
	cfg := seededConfig(t)
	logger := testLogger()
	ctx := context.Background()

	seed, err := provideSeed(cfg, logger)
	require.NoError(t, err)

	for _, backend := range []string{config.MappingBackendPostgres, config.MappingBackendMemory} {
		cfg.Mapping.Backend = backend
		mappings, cleanup, err := provideMappingStore(cfg, nil, seed, logger)
		require.NoError(t, err)
		row, ok, err := mappings.RowIDFor(ctx, 42)
		require.NoError(t, err)
		require.True(t, ok, backend)
		require.Equal(t, faq.RowID(7), row)
		cleanup()
	}

	records, err := provideRecordStore(nil, seed, logger)
	require.NoError(t, err)
	rec, ok, err := records.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Parks typically open at 9am.", rec.Answer)
}

func TestProvideSeedSurfacesBadFile(t *testing.T) {
	cfg := &config.Config{FAQ: config.FAQConfig{SeedPath: filepath.Join(t.TempDir(), "missing.yaml")}}
	_, err := provideSeed(cfg, testLogger())
	require.Error(t, err)
}
