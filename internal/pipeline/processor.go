package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/ingest"
)

// ErrSkipped marks a row that carries no alert document. Skips are routine
// and are not counted as failures.
var ErrSkipped = errors.New("row has no alert document")

// Placeholders used when neither the document nor the row supplies a value.
const (
	UntitledAlert     = "Untitled alert"
	NoDescription     = "No description provided"
	fallbackIDPattern = "alert-%d"
)

// Optional row columns consulted when the document omits a field.
const (
	columnTitle   = "title"
	columnSummary = "summary"
	columnAuthor  = "author"
	columnPubDate = "pubDate"
)

// documentRoot matches the opening CAP root tag, with or without a namespace prefix.
var documentRoot = regexp.MustCompile(`<(\w+:)?alert[\s>/]`)

// DocumentParser extracts the CAP field set from document text.
type DocumentParser interface {
	Parse(text string) (domain.ParsedDocument, error)
}

// RowProcessor turns one CSV row into a normalized alert.
type RowProcessor struct {
	parser   DocumentParser
	geocoder domain.ReverseGeocoder
	region   domain.BoundingBox
	logger   *slog.Logger
}

// NewRowProcessor creates a RowProcessor. Pass a nil geocoder to disable area
// enrichment and a zero region to disable coordinate range warnings.
func NewRowProcessor(parser DocumentParser, geocoder domain.ReverseGeocoder, region domain.BoundingBox, logger *slog.Logger) *RowProcessor {
	return &RowProcessor{
		parser:   parser,
		geocoder: geocoder,
		region:   region,
		logger:   logger,
	}
}

// Process normalizes row into an Alert. It returns ErrSkipped when the content
// cell holds no document and a wrapped parser error when the document cannot
// be read.
func (p *RowProcessor) Process(ctx context.Context, row domain.RawRow, index int) (domain.Alert, error) {
	content := row.Get(ingest.ContentColumn)
	if content == "" || !documentRoot.MatchString(content) {
		return domain.Alert{}, ErrSkipped
	}

	doc, err := p.parser.Parse(content)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("parse row %d: %w", index, err)
	}

	logger := p.logger.With("row", index)
	alert := buildAlert(doc, row, index, content, p.region, logger)
	alert = domain.EnrichAreaDescription(ctx, alert, p.geocoder, logger)
	return alert, nil
}

func buildAlert(doc domain.ParsedDocument, row domain.RawRow, index int, content string, region domain.BoundingBox, logger *slog.Logger) domain.Alert {
	info := doc.Info
	if info == nil {
		info = &domain.InfoBlock{}
	}
	area := info.Area
	if area == nil {
		area = &domain.AreaBlock{}
	}

	now := domain.Now()
	alert := domain.Alert{
		ID:          doc.Identifier,
		Identifier:  doc.Identifier,
		Title:       firstNonEmpty(info.Headline, info.Event, row.Get(columnTitle), UntitledAlert),
		Event:       info.Event,
		Description: firstNonEmpty(info.Description, row.Get(columnSummary), NoDescription),
		Category:    domain.NormalizeCategory(info.Category),
		Urgency:     domain.NormalizeUrgency(info.Urgency),
		Severity:    domain.NormalizeSeverity(info.Severity),
		Certainty:   domain.NormalizeCertainty(info.Certainty),
		Status:      domain.NormalizeStatus(doc.Status),
		MsgType:     domain.NormalizeMsgType(doc.MsgType),
		Sender:      firstNonEmpty(doc.Sender, row.Get(columnAuthor)),
		SenderName:  firstNonEmpty(info.SenderName, row.Get(columnAuthor)),
		Source:      doc.Source,
		Sent:        resolveSent(doc.Sent, row.Get(columnPubDate), now, logger),
		Effective:   optionalTime(info.Effective),
		Expires:     optionalTime(info.Expires),
		AreaDesc:    area.Description,
		Polygon:     domain.ExtractPolygon(area.Polygon, region, logger),
		OriginalXML: content,
		Language:    info.Language,
		References:  doc.References,
	}
	if alert.ID == "" {
		alert.ID = fmt.Sprintf(fallbackIDPattern, index)
	}

	alert.HasGeometry = len(alert.Polygon) > 0
	alert.IsExpired = alert.Expires != nil && alert.Expires.Before(now)
	alert.IsCancelled = alert.MsgType == domain.MsgTypeCancel
	return alert
}

// resolveSent picks the document timestamp, then the row's publication date,
// then the processing time. A row is never dropped for a bad timestamp.
func resolveSent(docSent, pubDate string, now time.Time, logger *slog.Logger) time.Time {
	if t, ok := domain.ParseTimestamp(docSent); ok {
		return t
	}
	if t, ok := domain.ParseTimestamp(pubDate); ok {
		return t
	}
	logger.Warn("no parseable sent timestamp, using processing time",
		"sent", docSent,
		"pub_date", pubDate,
	)
	return now
}

func optionalTime(s string) *time.Time {
	t, ok := domain.ParseTimestamp(s)
	if !ok {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
