package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docrag/internal/port"
)

// IngestUseCase drives the ingestion path: extract files, chunk the
// extracted text, and add the chunks to the deduplicating index.
type IngestUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	index     *IndexUseCase
	logger    *slog.Logger
}

func NewIngestUseCase(extractor port.Extractor, chunker port.Chunker, index *IndexUseCase, logger *slog.Logger) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		logger:    logger,
	}
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	FilesIngested    int
	FilesFailed      int
	ChunksConsidered int
	Errors           []string
}

// Ingest processes each file in turn. A failing file is logged and
// skipped; files already committed stay committed (partial success).
// progress, if non-nil, is called after each file with (done, total).
func (u *IngestUseCase) Ingest(ctx context.Context, paths []string, progress func(done, total int)) (*IngestResult, error) {
	result := &IngestResult{}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		considered, err := u.ingestFile(ctx, path)
		if err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			u.logger.Error("failed to ingest file", "path", path, "error", err)
		} else {
			result.FilesIngested++
			result.ChunksConsidered += considered
		}

		if progress != nil {
			progress(i+1, len(paths))
		}
	}

	return result, nil
}

func (u *IngestUseCase) ingestFile(ctx context.Context, path string) (int, error) {
	docs, err := u.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("extraction failed: %w", err)
	}

	chunks := u.chunker.Chunk(docs)
	if len(chunks) == 0 {
		u.logger.Warn("file produced no chunks", "path", path)
		return 0, nil
	}

	considered, err := u.index.Add(ctx, chunks)
	if err != nil {
		return considered, err
	}

	u.logger.Info("ingested file", "path", path, "segments", len(docs), "chunks_considered", considered)
	return considered, nil
}
