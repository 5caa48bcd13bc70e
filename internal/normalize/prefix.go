package normalize

import (
	"regexp"
	"strings"
)

// Enumeration prefixes left over from bulk imports: "Q5.", "Q.", "12-",
// "(3)", "Question 4:". Ordered so the more specific question-word forms
// win over bare numbers.
var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[Qq](?:uestion)?\s*\d*\s*[.)\-:]\s*`),
	regexp.MustCompile(`^\(\d+\)\s*`),
	regexp.MustCompile(`^\d+\s*[.)\-:]\s*`),
}

// StripEnumPrefix removes a leading enumeration prefix from the question
// text and reports what was removed. It never empties the text: if
// stripping would leave nothing, the original is kept.
func StripEnumPrefix(text string) (cleaned string, stripped string) {
	cleaned = text
	for {
		matched := false
		for _, re := range prefixPatterns {
			loc := re.FindStringIndex(cleaned)
			if loc == nil || loc[0] != 0 {
				continue
			}
			rest := cleaned[loc[1]:]
			if strings.TrimSpace(rest) == "" {
				return text, ""
			}
			stripped += cleaned[:loc[1]]
			cleaned = rest
			matched = true
			break
		}
		if !matched {
			break
		}
	}
	stripped = strings.TrimSpace(stripped)
	return cleaned, stripped
}
