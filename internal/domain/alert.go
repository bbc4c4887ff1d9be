package domain

import (
	"strings"
	"time"
)

// RawRow is one CSV record keyed by trimmed header name.
type RawRow map[string]string

// Get returns the trimmed value of column, or "" when the column is absent.
func (r RawRow) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// ParsedDocument is the flat field set extracted from one CAP document.
// Leaf fields are "" when absent; Info is nil when the document has no info block.
type ParsedDocument struct {
	Identifier string
	Sender     string
	Source     string
	Sent       string
	Status     string
	MsgType    string
	Scope      string
	References string
	Info       *InfoBlock
}

// InfoBlock holds the first <info> element of a CAP document.
type InfoBlock struct {
	Language    string
	Category    string
	Event       string
	Urgency     string
	Severity    string
	Certainty   string
	Effective   string
	Expires     string
	SenderName  string
	Headline    string
	Description string
	Area        *AreaBlock
}

// AreaBlock holds the first <area> element of an info block.
type AreaBlock struct {
	Description string
	Polygon     string
}

// Point is a WGS-84 latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a closed ring of points. A nil Polygon means no geometry.
type Polygon []Point

// Alert is one normalized CAP message derived from one input row.
// Alerts are immutable once built.
type Alert struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Event      string `json:"event,omitempty"`

	Description string `json:"description"`

	Category  string `json:"category"`
	Urgency   string `json:"urgency"`
	Severity  string `json:"severity"`
	Certainty string `json:"certainty"`
	Status    string `json:"status"`
	MsgType   string `json:"msgType"`

	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Source     string `json:"source,omitempty"`

	Sent      time.Time  `json:"sent"`
	Effective *time.Time `json:"effective,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`

	AreaDesc string  `json:"areaDesc"`
	Polygon  Polygon `json:"polygon,omitempty"`

	OriginalXML string `json:"originalXml"`
	Language    string `json:"language,omitempty"`
	References  string `json:"references,omitempty"`

	HasGeometry bool `json:"hasGeometry"`
	IsExpired   bool `json:"isExpired"`
	IsCancelled bool `json:"isCancelled"`
}

// DisplayAlert is the reconciled view of one alert chain: the latest message in
// the chain plus the full history in ascending sent order.
type DisplayAlert struct {
	Alert
	Timeline      []Alert `json:"timeline"`
	IsGroupHeader bool    `json:"isGroupHeader"`
	GroupSize     int     `json:"groupSize"`
}
