package rag

import (
	"regexp"
	"strings"
)

var (
	// an unterminated tag swallows the rest of the input
	tagPattern        = regexp.MustCompile(`<[^>]*>?`)
	structuralPattern = regexp.MustCompile(`[{}\[\]();<>]`)
	disallowedPattern = regexp.MustCompile(`[^A-Za-z0-9\s.,!?'\-]`)
)

// Sanitize cleans a user query before it is embedded or interpolated into a prompt.
// Anything that is not a string yields an empty result.
//
// The steps run in order, each on the output of the previous one:
//  1. drop tag-like runs such as <script> or <img src=x
//  2. drop the structural characters { } [ ] ( ) ; < >
//  3. drop every character outside ASCII letters, digits, whitespace and . , ! ? ' -
//  4. trim surrounding whitespace
func Sanitize(input any) string {
	text, ok := input.(string)
	if !ok {
		return ""
	}

	text = tagPattern.ReplaceAllString(text, "")
	text = structuralPattern.ReplaceAllString(text, "")
	text = disallowedPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
