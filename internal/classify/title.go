package classify

// Title placeholders written into records.
const (
	// TitleNotFound is used when a page has neither <title> nor og:title.
	TitleNotFound = "[No Title Found]"

	// TitleParseError is used when no parsed content is available or
	// the content could not be queried.
	TitleParseError = "[Title Parse Error]"

	// TitleNonHTML is used for 2xx responses that are not HTML.
	TitleNonHTML = "[Non-HTML File]"
)

// PageTitle returns the display title of a parsed page: the <title>
// text, then og:title, then TitleNotFound. It never panics.
func PageTitle(content Content) (title string) {
	if content == nil {
		return TitleParseError
	}
	defer func() {
		if recover() != nil {
			title = TitleParseError
		}
	}()

	if t, ok := content.Title(); ok {
		return t
	}
	if t, ok := content.OpenGraphTitle(); ok {
		return t
	}
	return TitleNotFound
}
