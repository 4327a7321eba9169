// Package enrich runs the best-effort metadata pipeline for uploaded files:
// download, parse, persist the summary, resolve labels, reindex. A failure
// never blocks the entity itself; the worst outcome is a catalog item without
// row counts and preview.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/datahub/internal/domain"
	"github.com/kailas-cloud/datahub/internal/domain/metadata"
	domproj "github.com/kailas-cloud/datahub/internal/domain/projection"
	"github.com/kailas-cloud/datahub/internal/logger"
	"github.com/kailas-cloud/datahub/internal/metrics"
)

// Stage names the pipeline step an outcome is attributed to.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
	StagePersist Stage = "persist"
	StageIndex   Stage = "index"
)

// Service executes one enrichment run per upload-completed signal.
type Service struct {
	fetcher BlobFetcher
	parser  *parser
	meta    MetadataStore
	primary PrimaryReader
	builder *Builder
	index   Index
}

// New creates the enrichment service.
func New(
	fetcher BlobFetcher,
	meta MetadataStore,
	primary PrimaryReader,
	builder *Builder,
	index Index,
	previewRows, previewMaxBytes int,
) *Service {
	return &Service{
		fetcher: fetcher,
		parser:  newParser(previewRows, previewMaxBytes),
		meta:    meta,
		primary: primary,
		builder: builder,
		index:   index,
	}
}

// Run processes one upload-completed signal end to end. A returned error is
// transient and means retry; permanent problems (unsupported or unparsable
// file, entity gone) are absorbed here so the task acks.
func (s *Service) Run(ctx context.Context, t domproj.Task) error {
	log := logger.FromContext(ctx).With(
		zap.String("entity_id", t.EntityID),
		zap.String("filename", t.OriginalFilename),
	)

	e, err := s.primary.Get(ctx, t.EntityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Entity removed between upload and enrichment.
			s.observe(StageResolve, "skipped")
			log.Info("enrichment skipped, entity gone")
			return nil
		}
		s.observe(StageResolve, "failed")
		return fmt.Errorf("resolve entity: %w", err)
	}

	format, err := DetectFormat(t.OriginalFilename)
	if err != nil {
		s.observe(StageParse, "unsupported")
		log.Info("enrichment skipped, unsupported format", zap.Error(err))
		return nil
	}

	data, err := s.fetcher.Fetch(ctx, t.FileURL)
	if err != nil {
		s.observe(StageFetch, "failed")
		return fmt.Errorf("fetch %s: %w", t.FileURL, err)
	}

	result, err := s.parser.Parse(data, format)
	if err != nil {
		if errors.Is(err, domain.ErrUnparsable) || errors.Is(err, domain.ErrUnsupportedFormat) {
			s.observe(StageParse, "unparsable")
			log.Warn("enrichment abandoned, file not parsable", zap.Error(err))
			return nil
		}
		s.observe(StageParse, "failed")
		return fmt.Errorf("parse %s: %w", t.OriginalFilename, err)
	}

	preview, err := metadata.BuildPreview(result.headers, result.previewRows, s.parser.previewMaxBytes)
	if err != nil {
		s.observe(StageParse, "failed")
		return fmt.Errorf("build preview: %w", err)
	}

	// Overwrite, never append: a replacement upload produces exactly one
	// summary per entity.
	p := metadata.Parsed{
		EntityID:    t.EntityID,
		Format:      result.format,
		RowCount:    result.rowCount,
		ColumnCount: result.columnCount,
		PreviewJSON: preview,
		ParsedAt:    time.Now().UTC(),
	}
	if err := s.meta.Put(ctx, &p); err != nil {
		s.observe(StagePersist, "failed")
		return fmt.Errorf("persist metadata: %w", err)
	}

	doc, err := s.builder.Build(ctx, e)
	if err != nil {
		s.observe(StageIndex, "failed")
		return fmt.Errorf("build document: %w", err)
	}
	if err := s.index.Upsert(ctx, doc); err != nil {
		s.observe(StageIndex, "failed")
		return fmt.Errorf("upsert document: %w", err)
	}

	s.observe(StageIndex, "ok")
	log.Info("entity enriched",
		zap.String("format", string(result.format)),
		zap.Int64("rows", result.rowCount),
		zap.Int("columns", result.columnCount))
	return nil
}

func (s *Service) observe(stage Stage, outcome string) {
	metrics.EnrichmentRunsTotal.WithLabelValues(string(stage), outcome).Inc()
}
