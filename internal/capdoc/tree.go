package capdoc

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Node is one element of a parsed document tree.
type Node interface {
	// Find returns the first descendant element whose local name is name.
	Find(name string) (Node, bool)
	// Text returns the element's trimmed text content.
	Text() string
}

// TreeParser turns document text into a tree. It is the one host capability
// the parser depends on, so tests can substitute their own.
type TreeParser interface {
	ParseTree(text string) (Node, error)
}

// XMLTreeParser implements TreeParser with an XML DOM.
type XMLTreeParser struct{}

// ParseTree parses text as XML and returns the document node.
func (XMLTreeParser) ParseTree(text string) (Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return xmlNode{n: doc}, nil
}

type xmlNode struct {
	n *xmlquery.Node
}

// Find matches on local-name() so both default-namespace documents and
// prefixed ones (<cap:alert>) resolve the same way.
func (x xmlNode) Find(name string) (Node, bool) {
	found, err := xmlquery.Query(x.n, fmt.Sprintf(".//*[local-name()='%s']", name))
	if err != nil || found == nil {
		return nil, false
	}
	return xmlNode{n: found}, true
}

func (x xmlNode) Text() string {
	return strings.TrimSpace(x.n.InnerText())
}
