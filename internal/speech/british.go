package speech

import "strings"

var british = strings.NewReplacer(
	"color", "colour",
	"center", "centre",
	"realize", "realise",
)

// BritishSpelling rewrites the American spellings the voice would otherwise
// pronounce differently.
func BritishSpelling(text string) string {
	return british.Replace(text)
}
