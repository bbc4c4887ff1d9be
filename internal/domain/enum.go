package domain

import "strings"

// Fallback values for each controlled vocabulary.
const (
	DefaultCategory  = "Other"
	DefaultUrgency   = "Unknown"
	DefaultSeverity  = "Unknown"
	DefaultCertainty = "Unknown"
	DefaultStatus    = "Actual"
	DefaultMsgType   = "Alert"
)

// Message types referenced by the pipeline.
const (
	MsgTypeAlert  = "Alert"
	MsgTypeUpdate = "Update"
	MsgTypeCancel = "Cancel"
)

// CAP 1.2 controlled vocabularies, in canonical spelling.
var (
	Categories  = []string{"Met", "Geo", "Safety", "Security", "Rescue", "Fire", "Health", "Env", "Transport", "Infra", "CBRNE", "Other"}
	Urgencies   = []string{"Immediate", "Expected", "Future", "Past", "Unknown"}
	Severities  = []string{"Extreme", "Severe", "Moderate", "Minor", "Unknown"}
	Certainties = []string{"Observed", "Likely", "Possible", "Unlikely", "Unknown"}
	Statuses    = []string{"Actual", "Exercise", "System", "Test", "Draft"}
	MsgTypes    = []string{"Alert", "Update", "Cancel", "Ack", "Error"}
)

// Normalize maps raw onto its canonical spelling in vocabulary, matching the
// trimmed input case-insensitively. Anything else yields def.
func Normalize(raw string, vocabulary []string, def string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	for _, v := range vocabulary {
		if strings.EqualFold(raw, v) {
			return v
		}
	}
	return def
}

func NormalizeCategory(raw string) string  { return Normalize(raw, Categories, DefaultCategory) }
func NormalizeUrgency(raw string) string   { return Normalize(raw, Urgencies, DefaultUrgency) }
func NormalizeSeverity(raw string) string  { return Normalize(raw, Severities, DefaultSeverity) }
func NormalizeCertainty(raw string) string { return Normalize(raw, Certainties, DefaultCertainty) }
func NormalizeStatus(raw string) string    { return Normalize(raw, Statuses, DefaultStatus) }
func NormalizeMsgType(raw string) string   { return Normalize(raw, MsgTypes, DefaultMsgType) }
