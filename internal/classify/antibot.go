package classify

import "strings"

// AntiBotNote is the note of a Blocked record.
const AntiBotNote = "Anti-Bot page detected"

// Challenge phrases that mark an anti-bot interstitial. Title phrases
// are matched against the lower-cased <title> only, text phrases
// against the whole visible text.
var (
	antiBotTitlePhrases = []string{
		"just a moment",
		"checking your browser",
		"access denied",
	}
	antiBotTextPhrases = []string{
		"human verification",
		"are you a robot",
		"captcha",
	}
)

// isAntiBotPage reports whether the page looks like a bot challenge.
func isAntiBotPage(s signals) bool {
	return containsAny(s.title, antiBotTitlePhrases) || containsAny(s.text, antiBotTextPhrases)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
