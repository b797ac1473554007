package classify

import (
	"github.com/nao1215/zorah/internal/model"
)

// Content is the parsed page the classifier may inspect.
// *htmldoc.Document implements it.
type Content interface {
	// Title returns the <title> text, if any.
	Title() (string, bool)

	// OpenGraphTitle returns the og:title meta content, if any.
	OpenGraphTitle() (string, bool)

	// Text returns the lower-cased visible text.
	Text() string

	// HasElement reports whether a tag with attr=value is present.
	HasElement(tag, attr, value string) bool
}

// Classify produces the verdict for one response. It performs no I/O.
// content may be nil when no body was parsed; the title then becomes
// TitleParseError and only header-based detectors can match.
func Classify(meta model.ResponseMeta, content Content) model.Classification {
	s := newSignals(meta, content)

	c := model.Classification{
		Status:   model.StatusCode(meta.StatusCode),
		Services: detectServices(s),
	}

	if isAntiBotPage(s) {
		if c.Services.WAF == model.NotAvailable {
			c.Services.WAF = model.GenericBotBlock
		}
		c.Type = model.ResultTypeBlocked
		c.Note = AntiBotNote
		c.Title = PageTitle(content)
		return c
	}

	c.Type, c.Note = classifyStatus(meta)
	if c.Type == model.ResultTypeFile {
		c.Title = TitleNonHTML
	} else {
		c.Title = PageTitle(content)
	}
	return c
}

// classifyStatus maps the status code to a result type and note.
func classifyStatus(meta model.ResponseMeta) (model.ResultType, string) {
	code := meta.StatusCode
	switch {
	case code >= 200 && code < 300:
		if meta.IsHTML() {
			return model.ResultTypePage, "OK"
		}
		return model.ResultTypeFile, headerOrNA(meta, "content-type")
	case code >= 300 && code < 400:
		return model.ResultTypeRedirect, "Redirects to: " + headerOrNA(meta, "location")
	case code >= 400 && code < 500:
		return model.ResultTypeError, "Client Error: " + meta.Reason
	case code >= 500 && code < 600:
		return model.ResultTypeError, "Server Error: " + meta.Reason
	default:
		return model.ResultTypeError, "Unknown Status"
	}
}

func headerOrNA(meta model.ResponseMeta, name string) string {
	if !meta.HasHeader(name) {
		return model.NotAvailable
	}
	return meta.Header(name)
}
