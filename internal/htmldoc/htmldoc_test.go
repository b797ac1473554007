package htmldoc

import (
	"slices"
	"testing"
)

func mustParse(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func TestTitle(t *testing.T) {
	t.Parallel()

	t.Run("title element", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, "<html><head><title>  Hello  </title></head></html>")
		title, ok := doc.Title()
		if !ok || title != "Hello" {
			t.Errorf("got (%q, %v), want (\"Hello\", true)", title, ok)
		}
	})

	t.Run("blank title is missing", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, "<html><head><title>   </title></head></html>")
		if _, ok := doc.Title(); ok {
			t.Error("expected blank title to be reported missing")
		}
	})

	t.Run("no title", func(t *testing.T) {
		t.Parallel()
		doc := mustParse(t, "<p>no head</p>")
		if _, ok := doc.Title(); ok {
			t.Error("expected no title")
		}
	})
}

func TestOpenGraphTitle(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><head><meta property="og:title" content="Shared Title"></head></html>`)
	title, ok := doc.OpenGraphTitle()
	if !ok || title != "Shared Title" {
		t.Errorf("got (%q, %v), want (\"Shared Title\", true)", title, ok)
	}

	doc = mustParse(t, `<html><head><meta name="description" content="x"></head></html>`)
	if _, ok := doc.OpenGraphTitle(); ok {
		t.Error("expected no og:title")
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Just A Moment</title>
<script>var captcha = true;</script><style>.x{}</style></head>
<body><h1>Are you
   a ROBOT?</h1></body></html>`
	doc := mustParse(t, body)
	text := doc.Text()

	if text != "just a moment are you a robot?" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestHasElement(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<form id="cf-challenge-form" action="/x"></form><div id="other"></div>`)

	if !doc.HasElement("form", "id", "cf-challenge-form") {
		t.Error("expected challenge form to be found")
	}
	if doc.HasElement("div", "id", "cf-challenge-form") {
		t.Error("tag name must match")
	}
	if doc.HasElement("form", "id", "cf-challenge") {
		t.Error("attribute value must match exactly")
	}
}

func TestLinks(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<a href="/about">About</a>
<a>no href</a>
<a href="  https://example.com/x#frag ">X</a>
<a href="">empty</a>
<link href="/style.css">`)

	want := []string{"/about", "https://example.com/x#frag"}
	if got := doc.Links(); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
