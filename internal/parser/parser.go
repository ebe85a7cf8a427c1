// Package parser extracts catalog records from the site's markup using
// heuristic selector cascades and heading-based text segmentation.
package parser

import (
	"log/slog"

	"github.com/IshaanNene/catalogscraper/internal/config"
)

// Parser bundles the extraction components configured for one site.
type Parser struct {
	Cascade   *Cascade
	Segmenter *Segmenter
	Builder   *RecordBuilder
	Detail    *DetailExtractor
}

// New wires the extraction components from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Parser, error) {
	cascade := NewCascade(logger)
	segmenter := NewSegmenter(DefaultHeadings, cfg.Limits.HeadingMaxLength, cfg.Limits.DescriptionLength)
	builder, err := NewRecordBuilder(cfg.Site.BaseURL, cascade, BuilderOptions{
		Placeholder:           cfg.Site.PlaceholderImage,
		MinNameLength:         cfg.Limits.MinNameLength,
		CardDescriptionLength: cfg.Limits.CardDescriptionLength,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Parser{
		Cascade:   cascade,
		Segmenter: segmenter,
		Builder:   builder,
		Detail:    NewDetailExtractor(cascade, segmenter, cfg.Limits.MaxSpecifications, logger),
	}, nil
}
