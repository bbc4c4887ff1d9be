package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshmcarthur/cap-alerts/internal/capdoc"
	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/observability"
	"github.com/joshmcarthur/cap-alerts/internal/pipeline"
)

// --- fixtures ---

var nzRegion = domain.BoundingBox{MinLat: -53, MinLng: 165, MaxLat: -29, MaxLng: 180}

const wellingtonPolygon = "-41.0,174.0 -41.5,174.5 -42.0,174.0 -41.0,174.0"

type capFields struct {
	ID         string
	MsgType    string
	Sent       string
	References string
	Severity   string
	Category   string
	Headline   string
	Expires    string
	AreaDesc   string
	Polygon    string
}

func capDocument(f capFields) string {
	var b strings.Builder
	b.WriteString(`<alert xmlns="urn:oasis:names:tc:emergency:cap:1.2">`)
	fmt.Fprintf(&b, "<identifier>%s</identifier>", f.ID)
	b.WriteString("<sender>nema@civildefence.govt.nz</sender>")
	fmt.Fprintf(&b, "<sent>%s</sent>", f.Sent)
	b.WriteString("<status>Actual</status>")
	fmt.Fprintf(&b, "<msgType>%s</msgType>", f.MsgType)
	b.WriteString("<scope>Public</scope>")
	if f.References != "" {
		fmt.Fprintf(&b, "<references>%s</references>", f.References)
	}
	b.WriteString("<info><category>")
	b.WriteString(orDefault(f.Category, "Met"))
	b.WriteString("</category><event>Heavy Rain</event><urgency>Expected</urgency>")
	fmt.Fprintf(&b, "<severity>%s</severity>", orDefault(f.Severity, "Minor"))
	b.WriteString("<certainty>Likely</certainty>")
	if f.Expires != "" {
		fmt.Fprintf(&b, "<expires>%s</expires>", f.Expires)
	}
	b.WriteString("<senderName>MetService</senderName>")
	fmt.Fprintf(&b, "<headline>%s</headline>", orDefault(f.Headline, "Heavy Rain Warning"))
	b.WriteString("<description>Periods of heavy rain.</description>")
	if f.AreaDesc != "" || f.Polygon != "" {
		b.WriteString("<area>")
		fmt.Fprintf(&b, "<areaDesc>%s</areaDesc>", f.AreaDesc)
		if f.Polygon != "" {
			fmt.Fprintf(&b, "<polygon>%s</polygon>", f.Polygon)
		}
		b.WriteString("</area>")
	}
	b.WriteString("</info></alert>")
	return b.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// chainDocuments is an alert, its update, and its cancellation.
func chainDocuments() []string {
	return []string{
		capDocument(capFields{ID: "A1", MsgType: "Alert", Sent: "2024-01-15T10:00:00Z", AreaDesc: "Wellington", Polygon: wellingtonPolygon}),
		capDocument(capFields{ID: "A2", MsgType: "Update", Sent: "2024-01-15T12:00:00Z", References: "sender,A1,2024-01-15T10:00:00Z"}),
		capDocument(capFields{ID: "A3", MsgType: "Cancel", Sent: "2024-01-15T14:00:00Z", References: "sender,A2,2024-01-15T12:00:00Z"}),
	}
}

// buildCSV writes a header of content,title,summary,author,pubDate and one
// row per document.
func buildCSV(t *testing.T, contents ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{"content", "title", "summary", "author", "pubDate"}))
	for _, c := range contents {
		require.NoError(t, w.Write([]string{c, "", "", "", ""}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProcessor() *pipeline.RowProcessor {
	return pipeline.NewRowProcessor(capdoc.NewParser(capdoc.XMLTreeParser{}), nil, nzRegion, discardLogger())
}

func newService(src *memSource, pub pipeline.Publisher) *pipeline.Service {
	return pipeline.New(src, newProcessor(), pub, discardLogger(), observability.NewMetricsForTesting(),
		pipeline.Settings{FetchAttempts: 1, RowWorkers: 4})
}

// --- mocks ---

// memSource serves data from memory. When gate is set, each Open consumes one
// entry and waits for it to be closed before returning.
type memSource struct {
	mu    sync.Mutex
	data  []byte
	err   error
	gates []chan struct{}
	opens int
}

func (m *memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	data, err := m.data, m.err
	var gate chan struct{}
	if len(m.gates) > 0 {
		gate = m.gates[0]
		m.gates = m.gates[1:]
	}
	m.opens++
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memSource) String() string { return "memory" }

func (m *memSource) set(data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data, m.err = data, err
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]domain.DisplayAlert
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, alerts []domain.DisplayAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, alerts)
	return p.err
}

type stubParser struct {
	doc   domain.ParsedDocument
	err   error
	panic bool
}

func (s stubParser) Parse(string) (domain.ParsedDocument, error) {
	if s.panic {
		panic("parser exploded")
	}
	return s.doc, s.err
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
}

func (g *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	g.calls++
	return g.result, g.err
}
