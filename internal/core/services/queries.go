package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService exports and rewrites the custom queries of cached workbooks.
type QueryService struct {
	cache    driven.AssetCache
	parser   driven.DocumentParser
	rewriter driven.DocumentRewriter
	archive  driven.QueryArchive
	engine   *TransferEngine
}

// NewQueryService creates a query service. engine is used for publishing
// and may be nil when publishing is not needed.
func NewQueryService(
	cache driven.AssetCache,
	parser driven.DocumentParser,
	rewriter driven.DocumentRewriter,
	archive driven.QueryArchive,
	engine *TransferEngine,
) *QueryService {
	return &QueryService{
		cache:    cache,
		parser:   parser,
		rewriter: rewriter,
		archive:  archive,
		engine:   engine,
	}
}

// Export writes the first custom query of every cached workbook to the archive.
// Workbooks are named after their document file; a name already exported by
// an earlier workbook is reported as an anomaly instead of overwritten.
func (s *QueryService) Export(ctx context.Context) (*driving.QueryExport, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("%w: no query archive", domain.ErrNotConfigured)
	}

	ids, err := s.cache.IDs()
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}

	extractor := NewFieldExtractor(s.parser)
	out := &driving.QueryExport{Written: make(map[string]string)}
	for _, id := range ids {
		path, ok := s.cache.Lookup(id)
		if !ok {
			continue
		}
		asset := domain.RemoteAsset{ID: id, Name: documentName(path)}

		doc, err := s.parser.Parse(ctx, path)
		if err != nil {
			out.Anomalies = append(out.Anomalies, domain.Anomaly{AssetID: id, AssetName: asset.Name, Err: err})
			continue
		}
		af, _ := extractor.Extract(asset, doc)
		if af.Query == "" {
			out.Empty++
			continue
		}

		if _, dup := out.Written[asset.Name]; dup {
			err := fmt.Errorf("%w: another workbook already exported %q", domain.ErrInvalidInput, asset.Name)
			out.Anomalies = append(out.Anomalies, domain.Anomaly{AssetID: id, AssetName: asset.Name, Err: err})
			continue
		}
		loc, err := s.archive.Write(ctx, asset.Name, af.Query)
		if err != nil {
			return out, fmt.Errorf("write query %s: %w", asset.Name, err)
		}
		out.Written[asset.Name] = loc
	}
	logger.Info("Exported %d queries, %d workbooks without one", len(out.Written), out.Empty)
	return out, nil
}

// Replace rewrites query text in every cached workbook into OutputDir/<id>
// and, when requested, publishes the rewritten workbooks.
func (s *QueryService) Replace(ctx context.Context, req driving.ReplaceRequest) (*driving.ReplaceResult, error) {
	if req.Old == "" {
		return nil, fmt.Errorf("%w: replacement source text is empty", domain.ErrInvalidInput)
	}
	return s.editAll(ctx, domain.ReplaceText(req.Old, req.New), editTarget{
		outputDir: req.OutputDir,
		publish:   req.Publish,
		mode:      req.Mode,
	})
}

// AddColumn appends a select item to the custom query of every cached
// workbook whose name contains req.Workbook, or of every workbook when that
// is empty. Output and publishing work as in Replace.
func (s *QueryService) AddColumn(ctx context.Context, req driving.AddColumnRequest) (*driving.ReplaceResult, error) {
	if strings.TrimSpace(req.Column) == "" {
		return nil, fmt.Errorf("%w: column is empty", domain.ErrInvalidInput)
	}
	return s.editAll(ctx, domain.AddSelectItem(req.Column), editTarget{
		outputDir: req.OutputDir,
		publish:   req.Publish,
		mode:      req.Mode,
		match:     req.Workbook,
	})
}

type editTarget struct {
	outputDir string
	publish   bool
	mode      domain.PublishMode
	match     string
}

func (s *QueryService) editAll(ctx context.Context, edit domain.QueryEdit, t editTarget) (*driving.ReplaceResult, error) {
	if t.outputDir == "" {
		return nil, fmt.Errorf("%w: output directory is empty", domain.ErrInvalidInput)
	}
	if t.mode == "" {
		t.mode = domain.PublishOverwrite
	}
	if !t.mode.IsValid() {
		return nil, fmt.Errorf("%w: publish mode %q", domain.ErrInvalidInput, t.mode)
	}
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ids, err := s.cache.IDs()
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}

	result := &driving.ReplaceResult{}
	var errs []error
	for _, id := range ids {
		path, ok := s.cache.Lookup(id)
		if !ok || !strings.Contains(documentName(path), t.match) {
			continue
		}
		written, n, err := s.rewriter.Edit(ctx, path, edit, filepath.Join(t.outputDir, id))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", documentName(path), err))
			continue
		}
		if n == 0 {
			continue
		}
		logger.Debug("Edited %d queries in %s", n, written)
		result.Rewritten = append(result.Rewritten, written)
	}

	if t.publish && len(result.Rewritten) > 0 {
		if s.engine == nil {
			return result, fmt.Errorf("%w: no content server", domain.ErrNotConfigured)
		}
		published, err := s.engine.Upload(ctx, result.Rewritten, t.mode)
		result.Published = published
		if err != nil {
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	return result, errors.Join(errs...)
}

func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
