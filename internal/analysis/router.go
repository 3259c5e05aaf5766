package analysis

import (
	"strings"

	"github.com/vxlab/malsift/internal/config"
)

// Router guesses a malware category from sample content so reports and
// retrieval can mention the likely class up front.
type Router struct {
	rules []config.RouterRule
}

// NewRouter builds a Router over ordered category rules.
func NewRouter(rules []config.RouterRule) *Router {
	return &Router{rules: rules}
}

// Classify returns the category of the first rule with any keyword
// present in the sample, or "general" when nothing matches. Matching is
// a naive case-insensitive substring test, so "bot" inside "robot"
// counts; the rules are tuned with that in mind.
func (r *Router) Classify(sample string) string {
	lower := strings.ToLower(sample)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}
	return "general"
}
