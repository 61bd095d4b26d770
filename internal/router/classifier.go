package router

import (
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/config"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// Classifier assigns the intent category by evaluating the ordered keyword
// rules. Single-word keywords match against the utterance's token set;
// keywords containing a space or hyphen match as phrases against the
// normalized text. The first category with a hit wins, so the rule order is
// the tie-break policy.
type Classifier struct {
	rules []config.CategoryRule
}

// NewClassifier creates a classifier over the configured rules.
func NewClassifier(rules []config.CategoryRule) *Classifier {
	return &Classifier{rules: rules}
}

// normalize lowercases the utterance and collapses whitespace.
func normalize(utterance string) string {
	return strings.Join(strings.Fields(strings.ToLower(utterance)), " ")
}

// tokenize splits the normalized text into alphanumeric tokens.
func tokenize(normalized string) map[string]bool {
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens[b.String()] = true
			b.Reset()
		}
	}
	for _, r := range normalized {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// isPhrase reports whether a keyword must be matched as a phrase.
func isPhrase(keyword string) bool {
	return strings.ContainsAny(keyword, " -")
}

// Classify maps one utterance to its category. When no keyword set matches
// it returns CategoryNone with the fallback tier.
func (c *Classifier) Classify(utterance string) (models.Category, models.ConfidenceTier) {
	normalized := normalize(utterance)
	tokens := tokenize(normalized)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(kw)
			if isPhrase(kw) {
				if strings.Contains(normalized, kw) {
					return rule.Category, models.TierExact
				}
			} else if tokens[kw] {
				return rule.Category, models.TierExact
			}
		}
	}
	return models.CategoryNone, models.TierFallback
}
