package crawler

import (
	"github.com/nao1215/zorah/internal/classify"
	"github.com/nao1215/zorah/internal/htmldoc"
)

// Document is a parsed page: classifier input plus its raw hyperlinks.
type Document interface {
	classify.Content

	// Links returns raw href values in document order.
	Links() []string
}

// Parser turns a materialized HTML body into a Document.
type Parser interface {
	Parse(body []byte) (Document, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(body []byte) (Document, error)

// Parse calls f(body).
func (f ParserFunc) Parse(body []byte) (Document, error) {
	return f(body)
}

// HTMLParser is the default Parser, backed by htmldoc.
var HTMLParser Parser = ParserFunc(func(body []byte) (Document, error) {
	doc, err := htmldoc.Parse(body)
	if err != nil {
		return nil, err
	}
	return doc, nil
})
