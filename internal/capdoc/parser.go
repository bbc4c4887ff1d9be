// Package capdoc extracts the flat field set of a CAP document.
package capdoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

var (
	// ErrParserUnavailable means no tree parser was configured. It is an
	// environment precondition, not a data error.
	ErrParserUnavailable = errors.New("document parser unavailable")

	// ErrMalformed means the text could not be read as a CAP document.
	ErrMalformed = errors.New("malformed document")
)

// rootElement is the CAP document element.
const rootElement = "alert"

// Parser reads CAP documents through an injected TreeParser.
type Parser struct {
	tree TreeParser
}

// NewParser creates a Parser. A nil tree makes every Parse call fail with
// ErrParserUnavailable.
func NewParser(tree TreeParser) *Parser {
	return &Parser{tree: tree}
}

// Parse extracts a ParsedDocument from text. Doubled quotation marks left by
// CSV encoding are collapsed first. Structural failures return an error
// wrapping ErrMalformed; Parse never panics on bad input.
func (p *Parser) Parse(text string) (domain.ParsedDocument, error) {
	if p == nil || p.tree == nil {
		return domain.ParsedDocument{}, ErrParserUnavailable
	}

	root, err := p.tree.ParseTree(UnescapeQuotes(text))
	if err != nil {
		return domain.ParsedDocument{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	alert, ok := root.Find(rootElement)
	if !ok {
		return domain.ParsedDocument{}, fmt.Errorf("%w: no <%s> element", ErrMalformed, rootElement)
	}

	doc := domain.ParsedDocument{
		Identifier: text1(alert, "identifier"),
		Sender:     text1(alert, "sender"),
		Source:     text1(alert, "source"),
		Sent:       text1(alert, "sent"),
		Status:     text1(alert, "status"),
		MsgType:    text1(alert, "msgType"),
		Scope:      text1(alert, "scope"),
		References: text1(alert, "references"),
	}

	if info, ok := alert.Find("info"); ok {
		doc.Info = parseInfo(info)
	}
	return doc, nil
}

func parseInfo(info Node) *domain.InfoBlock {
	block := &domain.InfoBlock{
		Language:    text1(info, "language"),
		Category:    text1(info, "category"),
		Event:       text1(info, "event"),
		Urgency:     text1(info, "urgency"),
		Severity:    text1(info, "severity"),
		Certainty:   text1(info, "certainty"),
		Effective:   text1(info, "effective"),
		Expires:     text1(info, "expires"),
		SenderName:  text1(info, "senderName"),
		Headline:    text1(info, "headline"),
		Description: text1(info, "description"),
	}
	if area, ok := info.Find("area"); ok {
		block.Area = &domain.AreaBlock{
			Description: text1(area, "areaDesc"),
			Polygon:     text1(area, "polygon"),
		}
	}
	return block
}

// text1 returns the trimmed text of the first descendant named name, or "".
func text1(n Node, name string) string {
	child, ok := n.Find(name)
	if !ok {
		return ""
	}
	return child.Text()
}

// UnescapeQuotes collapses CSV-doubled quotes (""x"" → "x").
func UnescapeQuotes(text string) string {
	return strings.ReplaceAll(text, `""`, `"`)
}
