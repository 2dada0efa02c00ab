package triage

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// FallbackLanguage is used when detection is unreliable, so the model always
// receives an answer language.
const FallbackLanguage = "English"

// DetectLanguage guesses the language the user wrote in. Detection never
// fails the request; anything ambiguous degrades to FallbackLanguage.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return FallbackLanguage
	}

	// IsReliable rejects typical chat-length sentences, so the gate is only
	// that detection produced something at all. A wrong-but-close guess still
	// beats always answering in English.
	info := whatlanggo.Detect(text)
	if info.Confidence == 0 {
		return FallbackLanguage
	}

	name, ok := whatlanggo.Langs[info.Lang]
	if !ok {
		return FallbackLanguage
	}
	return name
}
