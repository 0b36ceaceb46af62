package microflow

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Intent is the classified meaning of one free-text reply.
type Intent string

const (
	IntentEmpty      Intent = "empty"
	IntentAnswer     Intent = "answer"
	IntentSuggestAll Intent = "suggest_all"
	IntentHelp       Intent = "help"
	IntentCancel     Intent = "cancel"
	IntentAccept     Intent = "accept"
	IntentCustomize  Intent = "customize"
	IntentShowAll    Intent = "show_all"
)

var cancelPhrases = []string{
	"nevermind", "never mind", "nvm", "cancel", "stop", "start over", "forget it", "scratch that", "go back",
}

// cancelFillers may trail a cancel phrase without turning it into an answer.
var cancelFillers = map[string]bool{
	"this": true, "that": true, "it": true, "please": true, "now": true, "then": true, "thanks": true,
}

var suggestAllPhrases = []string{
	"suggest all", "suggest everything", "just suggest", "suggest something", "you decide", "you choose",
	"surprise me", "generate all", "generate everything", "give me everything", "fill it in", "fill everything in",
}

var showAllPhrases = []string{
	"show all", "show everything", "show me all", "show me everything", "see all", "see everything", "all at once",
}

var acceptPhrases = []string{
	"yes", "y", "yep", "yeah", "ok", "okay", "sure", "accept", "accept all", "approve", "looks good",
	"sounds good", "perfect", "great", "good", "keep it", "keep", "use it", "use this", "that works", "next",
}

var customizePrefixes = []string{
	"customize", "customise", "change", "edit", "modify", "tweak", "adjust", "replace", "rename",
}

var interrogatives = map[string]struct{}{
	"what": {}, "why": {}, "how": {}, "when": {}, "where": {}, "who": {}, "which": {}, "whats": {},
	"can": {}, "could": {}, "should": {}, "would": {}, "will": {}, "do": {}, "does": {}, "did": {},
	"is": {}, "are": {}, "am": {}, "may": {}, "might": {},
}

var helpPhrases = []string{
	"help", "not sure", "i don't know", "i dont know", "idk", "explain", "an example", "confused", "unsure",
	"what do you mean", "tell me more",
}

// Classify maps a reply onto an intent. Anything phrased as a question is a help
// request, even when it also contains an affirmative word.
func Classify(input string) Intent {
	text := normalize(input)
	if text == "" {
		return IntentEmpty
	}
	if isQuestion(text) {
		return IntentHelp
	}
	phrase := strings.TrimRightFunc(text, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })

	switch {
	case isCancel(phrase):
		return IntentCancel
	case containsAny(phrase, helpPhrases):
		return IntentHelp
	case matchesAny(phrase, showAllPhrases):
		return IntentShowAll
	case matchesAny(phrase, suggestAllPhrases):
		return IntentSuggestAll
	case hasPrefixWord(phrase, customizePrefixes):
		return IntentCustomize
	case matchesAny(phrase, acceptPhrases):
		return IntentAccept
	}
	return IntentAnswer
}

// normalize folds full-width forms, composes accents and lowercases.
func normalize(input string) string {
	s := width.Fold.String(input)
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "’", "'")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isQuestion(text string) bool {
	if strings.ContainsAny(text, "?¿") {
		return true
	}
	first, _, _ := strings.Cut(text, " ")
	first = strings.TrimFunc(first, func(r rune) bool { return !unicode.IsLetter(r) })
	_, ok := interrogatives[first]
	// A lone "is" or "do" is too short to be a question.
	return ok && strings.Contains(text, " ")
}

// matchesAny reports whether phrase is one of candidates, optionally followed by more words
// for multi-word candidates ("cancel this", "show all phases").
func matchesAny(phrase string, candidates []string) bool {
	for _, c := range candidates {
		if phrase == c {
			return true
		}
		if strings.Contains(c, " ") && strings.HasPrefix(phrase, c+" ") {
			return true
		}
	}
	return false
}

// isCancel accepts a cancel phrase on its own or followed only by filler words,
// so answers such as "stop motion animation" stay answers.
func isCancel(phrase string) bool {
	for _, c := range cancelPhrases {
		if phrase == c {
			return true
		}
		rest, ok := strings.CutPrefix(phrase, c)
		if !ok || rest == "" || !(rest[0] == ' ' || rest[0] == ',') {
			continue
		}
		if onlyFillers(rest) {
			return true
		}
	}
	return false
}

func onlyFillers(rest string) bool {
	words := strings.FieldsFunc(rest, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) })
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !cancelFillers[w] {
			return false
		}
	}
	return true
}

func containsAny(phrase string, candidates []string) bool {
	padded := " " + phrase + " "
	for _, c := range candidates {
		if strings.Contains(padded, " "+c+" ") {
			return true
		}
	}
	return false
}

func hasPrefixWord(phrase string, prefixes []string) bool {
	word := strings.FieldsFunc(phrase, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(word) == 0 {
		return false
	}
	for _, p := range prefixes {
		if word[0] == p {
			return true
		}
	}
	return false
}

// customization returns the text after the first ':' of a customize reply, and an
// optional 1-based unit number written before it ("change 2: ...").
func customization(input string) (index int, text string) {
	head, tail, ok := strings.Cut(normalizeKeepCase(input), ":")
	if !ok {
		return 0, ""
	}
	for _, f := range strings.Fields(head) {
		n := 0
		for _, r := range f {
			if r < '0' || r > '9' {
				n = -1
				break
			}
			n = n*10 + int(r-'0')
		}
		if n > 0 {
			index = n
		}
	}
	return index, strings.TrimSpace(tail)
}

func normalizeKeepCase(input string) string {
	s := norm.NFC.String(width.Fold.String(input))
	return strings.Join(strings.Fields(s), " ")
}
