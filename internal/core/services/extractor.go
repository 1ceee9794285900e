package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/logger"
)

// ExtractResult is the outcome of extracting fields across a catalog.
type ExtractResult struct {
	// Assets holds one entry per successfully parsed asset, in input order.
	Assets []domain.AssetFields

	// Fields are the distinct fields across every asset, in first-seen order.
	// Each field's Assets set holds every asset that references it.
	Fields []*domain.Field

	// Anomalies are the skipped assets and fields.
	Anomalies []domain.Anomaly
}

// Queries maps asset name to recovered query for every asset that has one.
func (r *ExtractResult) Queries() map[string]string {
	out := make(map[string]string)
	for _, a := range r.Assets {
		if a.Query != "" {
			out[a.Asset.Name] = a.Query
		}
	}
	return out
}

// FieldExtractor turns parsed workbook documents into normalised fields.
type FieldExtractor struct {
	parser driven.DocumentParser
}

// NewFieldExtractor creates a field extractor.
func NewFieldExtractor(parser driven.DocumentParser) *FieldExtractor {
	return &FieldExtractor{parser: parser}
}

// Extract collects the distinct fields of one parsed document.
// Fields whose names normalise to nothing are returned as anomalies.
func (x *FieldExtractor) Extract(asset domain.RemoteAsset, doc *domain.ParsedDocument) (domain.AssetFields, []domain.Anomaly) {
	out := domain.AssetFields{Asset: asset}
	var anomalies []domain.Anomaly
	byName := make(map[string]*domain.Field)

	for _, ds := range doc.Datasources {
		for _, q := range ds.CustomQueries {
			if q == "" {
				continue
			}
			if out.Query == "" {
				out.Query = q
			} else {
				out.ExtraQueries++
			}
		}

		for _, raw := range ds.Fields {
			name := domain.NormalizeFieldName(raw.Name)
			if name == "" {
				anomalies = append(anomalies, domain.Anomaly{
					AssetID:   asset.ID,
					AssetName: asset.Name,
					Field:     raw.Name,
					Err:       domain.ErrEmptyFieldName,
				})
				continue
			}

			if f, ok := byName[name]; ok {
				mergeRawField(f, raw)
				continue
			}

			origin := domain.OriginSourceColumn
			if raw.Calculation != "" {
				origin = domain.OriginCalculated
			}
			f := domain.NewField(name, origin, asset.ID)
			f.Datatype = raw.Datatype
			f.Description = raw.Description
			byName[name] = f
			out.Fields = append(out.Fields, f)
		}
	}

	out.Asset.Query = out.Query
	return out, anomalies
}

// ExtractAll parses the local copy of every asset. paths maps asset ID to
// local document. Assets without a local copy or whose document fails to
// parse are skipped and reported; the rest of the catalog is processed.
func (x *FieldExtractor) ExtractAll(ctx context.Context, assets []domain.RemoteAsset,
	paths map[string]string) *ExtractResult {
	result := &ExtractResult{}
	byName := make(map[string]*domain.Field)

	for _, asset := range assets {
		path, ok := paths[asset.ID]
		if !ok {
			result.Anomalies = append(result.Anomalies, domain.Anomaly{
				AssetID:   asset.ID,
				AssetName: asset.Name,
				Err:       fmt.Errorf("no local copy: %w", domain.ErrNotFound),
			})
			continue
		}

		doc, err := x.parser.Parse(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", asset.Name, err)
			result.Anomalies = append(result.Anomalies, domain.Anomaly{
				AssetID:   asset.ID,
				AssetName: asset.Name,
				Err:       err,
			})
			continue
		}

		af, anomalies := x.Extract(asset, doc)
		result.Anomalies = append(result.Anomalies, anomalies...)
		result.Assets = append(result.Assets, af)

		for _, f := range af.Fields {
			if seen, ok := byName[f.Name]; ok {
				seen.AddAsset(asset.ID)
				mergeField(seen, f)
				continue
			}
			merged := domain.NewField(f.Name, f.Origin, asset.ID)
			merged.Datatype = f.Datatype
			merged.Description = f.Description
			byName[f.Name] = merged
			result.Fields = append(result.Fields, merged)
		}
		logger.Debug("Extracted %d fields from %s", len(af.Fields), asset.Name)
	}
	return result
}

// mergeRawField fills attributes a field is still missing from a later
// occurrence with the same normalised name.
func mergeRawField(f *domain.Field, raw domain.RawField) {
	if f.Datatype == "" {
		f.Datatype = raw.Datatype
	}
	if f.Description == "" {
		f.Description = raw.Description
	}
}

func mergeField(dst, src *domain.Field) {
	if dst.Datatype == "" {
		dst.Datatype = src.Datatype
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
}
