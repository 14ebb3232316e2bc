package services

import (
	"strings"
	"sync"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/platform/textutil"
)

// Classifier assigns a product name to the first declared category whose
// keywords all appear as substrings of the diacritic-stripped, lower-cased
// name. Matching is deliberately loose: keywords match anywhere in the name
// with no word-boundary constraint, because category assignment of existing
// catalog data depends on that behaviour.
type Classifier struct {
	categories []classifierCategory

	mu   sync.RWMutex
	memo map[string]string
}

type classifierCategory struct {
	name     string
	keywords []string
}

// NewClassifier pre-normalises the keyword sets once; the definitions are
// static for the process lifetime, so memoised results never need
// invalidation.
func NewClassifier(definitions []domain.Category) *Classifier {
	categories := make([]classifierCategory, 0, len(definitions))
	for _, def := range definitions {
		keywords := make([]string, 0, len(def.Keywords))
		for _, keyword := range def.Keywords {
			keywords = append(keywords, normalizeForMatch(keyword))
		}
		categories = append(categories, classifierCategory{name: def.Name, keywords: keywords})
	}
	return &Classifier{
		categories: categories,
		memo:       make(map[string]string),
	}
}

// Classify returns the category for the product name, or
// domain.CategoryNone when no keyword set matches. Repeated lookups for the
// same name string hit the memo and cost a single map read.
func (c *Classifier) Classify(name string) string {
	c.mu.RLock()
	cached, ok := c.memo[name]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	normalized := normalizeForMatch(name)
	result := domain.CategoryNone
	for _, category := range c.categories {
		if matchesAll(normalized, category.keywords) {
			result = category.name
			break
		}
	}

	c.mu.Lock()
	c.memo[name] = result
	c.mu.Unlock()
	return result
}

func matchesAll(name string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, keyword := range keywords {
		if !strings.Contains(name, keyword) {
			return false
		}
	}
	return true
}

func normalizeForMatch(s string) string {
	return textutil.StripDiacritics(strings.ToLower(s))
}
