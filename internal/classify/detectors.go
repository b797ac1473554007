package classify

import (
	"strings"

	"github.com/nao1215/zorah/internal/model"
)

// signals is the lower-cased evidence detectors look at.
type signals struct {
	meta    model.ResponseMeta
	server  string
	title   string
	text    string
	cookies string
	content Content
}

func newSignals(meta model.ResponseMeta, content Content) signals {
	s := signals{
		meta:    meta,
		server:  meta.Server(),
		cookies: meta.CookieString(),
		content: content,
	}
	if content != nil {
		if title, ok := content.Title(); ok {
			s.title = strings.ToLower(title)
		}
		s.text = content.Text()
	}
	return s
}

func (s signals) serverContains(sub string) bool {
	return strings.Contains(s.server, sub)
}

func (s signals) hasMarker(tag, attr, value string) bool {
	return s.content != nil && s.content.HasElement(tag, attr, value)
}

// verdict accumulates detector output. An empty field means "unset".
type verdict struct {
	cdn     string
	waf     string
	hybrids []string
}

// hybridDetector identifies a vendor that acts as both CDN and WAF.
// apply may overwrite fields set by an earlier hybrid.
type hybridDetector struct {
	vendor string
	match  func(s signals) bool
	apply  func(s signals, v *verdict)
}

// serviceDetector sets a single field when it matches.
type serviceDetector struct {
	name  string
	match func(s signals) bool
}

// hybridDetectors run first, in this order.
var hybridDetectors = []hybridDetector{
	{
		vendor: "Cloudflare",
		match: func(s signals) bool {
			return s.serverContains("cloudflare") || s.hasMarker("form", "id", "cf-challenge-form")
		},
		apply: func(_ signals, v *verdict) {
			v.cdn = "Cloudflare"
			v.waf = "Cloudflare"
		},
	},
	{
		vendor: "Akamai",
		match: func(s signals) bool {
			return s.serverContains("akamai") || s.meta.HasHeader("x-akamai-transformed")
		},
		apply: func(s signals, v *verdict) {
			v.cdn = "Akamai"
			if s.serverContains("akamaighost") || strings.Contains(s.text, "akamai-bot-manager") {
				v.waf = "Akamai (Bot Manager)"
			}
		},
	},
	{
		vendor: "Imperva",
		match: func(s signals) bool {
			return s.meta.HasHeader("x-iinfo") || s.serverContains("incapsula")
		},
		apply: func(_ signals, v *verdict) {
			v.cdn = "Imperva"
			v.waf = "Imperva (Incapsula)"
		},
	},
	{
		vendor: "Sucuri",
		match: func(s signals) bool {
			return s.meta.HasHeader("x-sucuri-id") || s.serverContains("sucuri/cloudproxy")
		},
		apply: func(_ signals, v *verdict) {
			v.cdn = "Sucuri"
			v.waf = "Sucuri"
		},
	},
}

// cdnDetectors run while no CDN is known; the first match wins.
var cdnDetectors = []serviceDetector{
	{
		name: "AWS CloudFront",
		match: func(s signals) bool {
			return s.serverContains("cloudfront") || s.meta.HasHeader("x-amz-cf-id")
		},
	},
	{
		name: "Fastly",
		match: func(s signals) bool {
			return s.serverContains("fastly") ||
				(s.meta.HasHeader("x-served-by") && s.meta.HasHeader("x-cache"))
		},
	},
	{
		name: "BunnyCDN",
		match: func(s signals) bool {
			return s.serverContains("bunnycdn")
		},
	},
	{
		name: "KeyCDN",
		match: func(s signals) bool {
			return strings.Contains(s.meta.Header("x-cache"), "keycdn")
		},
	},
}

// wafDetectors run while no WAF is known. Every detector is evaluated
// and the last one that matches wins.
var wafDetectors = []serviceDetector{
	{
		name: "AWS WAF",
		match: func(s signals) bool {
			return s.meta.Header("x-amz-waf-action") != ""
		},
	},
	{
		name: "DataDome",
		match: func(s signals) bool {
			return strings.Contains(s.cookies, "datadome") || strings.Contains(s.title, "pardon our interruption")
		},
	},
	{
		name: "F5 BIG-IP",
		match: func(s signals) bool {
			// Header values are lower-cased, so "BIG-IP" is matched as "big-ip".
			return s.meta.HasHeader("f5-w") || s.serverContains("big-ip")
		},
	},
}

// detectServices runs the detector chain and applies defaults.
func detectServices(s signals) model.ServiceVerdict {
	var v verdict

	for _, d := range hybridDetectors {
		if d.match(s) {
			d.apply(s, &v)
			v.hybrids = append(v.hybrids, d.vendor)
		}
	}

	if v.cdn == "" {
		for _, d := range cdnDetectors {
			if d.match(s) {
				v.cdn = d.name
				break
			}
		}
	}

	if v.waf == "" {
		var waf string
		for _, d := range wafDetectors {
			if d.match(s) {
				waf = d.name
			}
		}
		v.waf = waf
	}

	out := model.ServiceVerdict{CDN: v.cdn, WAF: v.waf}
	if out.CDN == "" {
		out.CDN = model.DirectHost
	}
	if out.WAF == "" {
		out.WAF = model.NotAvailable
	}
	if len(v.hybrids) > 1 {
		out.MixedSignals = v.hybrids
	}
	return out
}
