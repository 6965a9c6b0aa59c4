package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var (
	affirmativeWords = map[string]bool{"да": true, "yes": true}
	negativeWords    = map[string]bool{"нет": true, "no": true}
	negators         = map[string]bool{"не": true, "not": true, "doesn't": true, "don't": true, "cannot": true}

	registryStems = []string{"внесен", "внесён", "включен", "включён", "included", "entered"}
	allowStems    = []string{"позволя", "allow"}
)

// tokens splits folded text into words, keeping apostrophes so "doesn't" stays whole.
func tokens(s string) []string {
	// A Caser is stateful, so each call gets its own.
	folded := cases.Fold().String(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// hasStem reports whether any token starts with one of stems, and whether
// every such occurrence is directly preceded by a negator.
func hasStem(words []string, stems []string) (found, negated bool) {
	negated = true
	for i, w := range words {
		for _, stem := range stems {
			if !strings.HasPrefix(w, stem) {
				continue
			}
			found = true
			if i == 0 || !negators[words[i-1]] {
				negated = false
			}
		}
	}
	if !found {
		negated = false
	}
	return found, negated
}

func anyWord(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// RegistryFlag reduces a government-registry value to Yes or No. Only an
// affirmative marker that is not negated yields Yes.
func RegistryFlag(s string) string {
	words := tokens(s)
	if anyWord(words, affirmativeWords) {
		return Yes
	}
	if found, negated := hasStem(words, registryStems); found && !negated {
		return Yes
	}
	return No
}

// SmallObjectFlag reduces a small-object capability value to Yes or No when
// it carries a recognizable marker and returns it unchanged otherwise.
// Negative markers win over affirmative ones.
func SmallObjectFlag(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	words := tokens(s)
	found, negated := hasStem(words, allowStems)
	switch {
	case anyWord(words, negativeWords), found && negated:
		return No
	case anyWord(words, affirmativeWords), found:
		return Yes
	default:
		return v
	}
}
