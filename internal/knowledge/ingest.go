package knowledge

import (
	"context"

	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// IngestResult summarises one text ingestion.
type IngestResult struct {
	Generated  int `json:"blocos_gerados"`
	Inserted   int `json:"inseridos"`
	Duplicates int `json:"duplicatas"`
	Errors     int `json:"erros"`
}

// Ingester chunks text, embeds new chunks and stores them.
type Ingester struct {
	store    Store
	embedder Embedder
	logger   *logging.Logger
}

// NewIngester wires the store and embedding provider.
func NewIngester(store Store, embedder Embedder, logger *logging.Logger) *Ingester {
	if store == nil {
		panic("knowledge: store required")
	}
	if embedder == nil {
		panic("knowledge: embedder required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingester{store: store, embedder: embedder, logger: logger}
}

// Ingest stores each chunk at most once per category. Chunks are processed
// in order; a failure on one chunk is counted and the rest continue.
func (i *Ingester) Ingest(ctx context.Context, chunks []string, category string) IngestResult {
	res := IngestResult{Generated: len(chunks)}
	for n, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			res.Errors += len(chunks) - n
			break
		}
		exists, err := i.store.Exists(ctx, category, chunk)
		if err != nil {
			i.logger.Error("failed to check chunk duplicate", "chunk", n+1, "error", err)
			res.Errors++
			continue
		}
		if exists {
			res.Duplicates++
			continue
		}
		vec, err := i.embedder.Embed(ctx, chunk)
		if err != nil {
			i.logger.Error("failed to embed chunk", "chunk", n+1, "error", err)
			res.Errors++
			continue
		}
		if err := i.store.Insert(ctx, chunk, category, vec); err != nil {
			i.logger.Error("failed to insert chunk", "chunk", n+1, "error", err)
			res.Errors++
			continue
		}
		res.Inserted++
	}
	i.logger.Info("knowledge text ingested",
		"category", category,
		"generated", res.Generated,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"errors", res.Errors,
	)
	return res
}
