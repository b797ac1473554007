package model

// Placeholder values written into records.
const (
	// NotAvailable marks a field that has no value (no status, no WAF, ...).
	NotAvailable = "N/A"

	// DirectHost is the CDN value when no CDN signature matched.
	DirectHost = "N/A (Direct Host)"

	// GenericBotBlock is the WAF value for an anti-bot page that no
	// vendor detector recognised.
	GenericBotBlock = "Generic Bot-Block"
)

// ServiceVerdict names the CDN and WAF believed to front a response.
type ServiceVerdict struct {
	// CDN is the detected CDN vendor, DirectHost, or NotAvailable.
	CDN string `json:"cdn"`

	// WAF is the detected WAF vendor, GenericBotBlock, or NotAvailable.
	WAF string `json:"waf"`

	// MixedSignals lists every hybrid vendor whose signature matched when
	// more than one did. CDN and WAF still hold the last match.
	MixedSignals []string `json:"mixed_signals,omitempty"`
}

// Unfingerprinted returns the verdict used for records that were never
// run through service detection (files and failed fetches).
func Unfingerprinted() ServiceVerdict {
	return ServiceVerdict{CDN: NotAvailable, WAF: NotAvailable}
}

// HasMixedSignals reports whether conflicting hybrid vendors matched.
func (v ServiceVerdict) HasMixedSignals() bool {
	return len(v.MixedSignals) > 1
}

// Classification is the verdict for one response, before it is bound to a URL.
type Classification struct {
	Type     ResultType
	Note     string
	Status   StatusCode
	Title    string
	Services ServiceVerdict
}

// Result is one crawl record: a visited URL and its classification.
// Results are immutable once appended to a CrawlReport.
type Result struct {
	// URL is the fragment-stripped URL that was requested.
	URL string `json:"url"`

	// Title is the page title or a bracketed placeholder.
	Title string `json:"title"`

	// Status is the final HTTP status, or NoStatus when nothing came back.
	Status StatusCode `json:"status"`

	// Type is the outcome category.
	Type ResultType `json:"type"`

	// Note is a short human-readable explanation of Type.
	Note string `json:"note"`

	// Services holds the CDN/WAF verdict.
	Services ServiceVerdict `json:"services"`
}

// NewResult binds a classification to the URL it was produced for.
func NewResult(url string, c Classification) Result {
	return Result{
		URL:      url,
		Title:    c.Title,
		Status:   c.Status,
		Type:     c.Type,
		Note:     c.Note,
		Services: c.Services,
	}
}
