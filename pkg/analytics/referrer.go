package analytics

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/beacon/pkg/observability"
)

// Traffic source categories, in match order
const (
	SourceDirect   = "Direct"
	SourceSocial   = "Social Media"
	SourceSearch   = "Search"
	SourceInternal = "Internal"
	SourceReferral = "Referral"
)

const (
	categoryCacheSize = 4096
	categoryCacheTTL  = 1 * time.Hour
)

// SourceRules holds the hostname substrings used to categorize referrers.
// Matching is case-insensitive substring-on-hostname.
type SourceRules struct {
	Social   []string `yaml:"social"`
	Search   []string `yaml:"search"`
	Internal []string `yaml:"internal"`
}

// DefaultSourceRules returns the compiled-in rule sets.
func DefaultSourceRules() *SourceRules {
	return &SourceRules{
		Social: []string{
			"facebook", "twitter", "instagram", "linkedin", "reddit",
			"pinterest", "tiktok", "youtube",
		},
		Search: []string{
			"google", "bing", "yahoo", "duckduckgo", "baidu", "yandex", "ecosia",
		},
		Internal: []string{
			"localhost", "127.0.0.1",
		},
	}
}

// LoadSourceRules reads a YAML rules file and overlays it on the defaults.
// Any list left empty in the file keeps its compiled-in value.
func LoadSourceRules(path string) (*SourceRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source rules %s: %w", path, err)
	}

	var overrides SourceRules
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse source rules %s: %w", path, err)
	}

	rules := DefaultSourceRules()
	if len(overrides.Social) > 0 {
		rules.Social = overrides.Social
	}
	if len(overrides.Search) > 0 {
		rules.Search = overrides.Search
	}
	if len(overrides.Internal) > 0 {
		rules.Internal = overrides.Internal
	}
	return rules, nil
}

// Classifier categorizes referrer URLs into coarse traffic sources.
// Results are cached in an expirable LRU keyed by the raw referrer string;
// swapping rules purges the cache.
type Classifier struct {
	mu         sync.RWMutex
	rules      *SourceRules
	siteDomain string

	cache   *lru.LRU[string, string]
	metrics *observability.Metrics
}

// NewClassifier creates a classifier. A nil rules argument uses the
// compiled-in defaults. siteDomain marks the operator's own domain as
// Internal traffic; empty disables that check. metrics may be nil.
func NewClassifier(rules *SourceRules, siteDomain string, metrics *observability.Metrics) *Classifier {
	if rules == nil {
		rules = DefaultSourceRules()
	}
	return &Classifier{
		rules:      rules,
		siteDomain: strings.ToLower(siteDomain),
		cache:      lru.NewLRU[string, string](categoryCacheSize, nil, categoryCacheTTL),
		metrics:    metrics,
	}
}

// SetRules swaps the active rule sets and purges the category cache.
// A nil argument restores the defaults.
func (c *Classifier) SetRules(rules *SourceRules) {
	if rules == nil {
		rules = DefaultSourceRules()
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	c.cache.Purge()
}

// Rules returns the active rule sets.
func (c *Classifier) Rules() *SourceRules {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

// Categorize maps a referrer URL to one of the traffic source categories.
// It is total: every input, including empty and unparsable strings, maps to
// a category. The first matching check wins.
func (c *Classifier) Categorize(referrer string) string {
	if referrer == "" {
		return SourceDirect
	}

	if category, ok := c.cache.Get(referrer); ok {
		if c.metrics != nil {
			c.metrics.ReferrerCacheHitsTotal.Inc()
		}
		return category
	}
	if c.metrics != nil {
		c.metrics.ReferrerCacheMissesTotal.Inc()
	}

	category := c.categorize(referrer)
	c.cache.Add(referrer, category)
	return category
}

func (c *Classifier) categorize(referrer string) string {
	u, err := url.Parse(referrer)
	if err != nil {
		return SourceDirect
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return SourceDirect
	}

	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()

	for _, domain := range rules.Social {
		if strings.Contains(host, domain) {
			return SourceSocial
		}
	}
	for _, domain := range rules.Search {
		if strings.Contains(host, domain) {
			return SourceSearch
		}
	}
	if c.siteDomain != "" && strings.Contains(host, c.siteDomain) {
		return SourceInternal
	}
	for _, domain := range rules.Internal {
		if strings.Contains(host, domain) {
			return SourceInternal
		}
	}
	return SourceReferral
}
