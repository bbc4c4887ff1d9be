// Package domain models Common Alerting Protocol (CAP) emergency alerts as they
// arrive embedded in a tabular export.
//
// # Data Source
//
// An upstream batch job exports alert feed entries to CSV. Each row carries one
// CAP 1.2 document in its "content" column, plus optional feed-level columns
// ("title", "summary", "author", "pubDate") used as fallbacks when the document
// omits a field. CSV encoding doubles every quotation mark inside the document;
// the parser collapses them before reading the markup.
//
// # CAP Conventions
//
// Polygon format:
//
//	"<lat>,<lng> <lat>,<lng> ..."  →  whitespace-separated WGS-84 pairs.
//	A valid ring has at least three points. The first and last point should be
//	equal; an open ring is closed by repeating the first point.
//
// References format:
//
//	"<sender>,<identifier>,<sent> <sender>,<identifier>,<sent> ..."
//	Each group names an earlier message this one updates or cancels. The sent
//	value is informational only; identifiers are the link key.
//
// Message lifecycle:
//
//	msgType "Alert" opens a chain, "Update" revises it, "Cancel" withdraws it.
//	A chain is reconstructed from references, see package timeline.
//
// Controlled vocabularies:
//
//	category, urgency, severity, certainty, status and msgType each accept a
//	closed set of values. Matching is case-insensitive on trimmed input and
//	unknown values fall back to a documented default, see [Normalize].
package domain
