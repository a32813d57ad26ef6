// Package detector maps video titles to the canonical assets they mention.
// Detection is pattern-based and deterministic: every title is scanned
// against an ordered rule table (built-in patterns plus configured extras)
// so repeated runs always produce the same asset list in the same order.
package detector

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/ternarybob/arbor"
)

// assetRule binds one canonical asset to the title patterns that mention it.
// Patterns cover Korean names, English names, and ticker shorthand.
type assetRule struct {
	asset    string
	patterns []*regexp.Regexp
}

// assetRules is evaluated in order; output order follows this table, not the
// match position inside the title. Korean stock-market slang is included
// (국장 domestic market, 미장 US market, 삼전 Samsung Electronics).
var assetRules = []assetRule{
	{asset: "KOSPI", patterns: compile(`코스피`, `(?i)kospi`, `국장`, `한국.*증시`, `한국.*주식`)},
	{asset: "NASDAQ", patterns: compile(`나스닥`, `(?i)nasdaq`, `미국.*증시`, `미장`)},
	{asset: "SP500", patterns: compile(`(?i)s&?p\s*500`, `에스앤피`, `에스피`)},
	{asset: "Samsung", patterns: compile(`삼성전자`, `삼전`)},
	{asset: "SKHynix", patterns: compile(`하이닉스`, `(?i)sk하이닉스`)},
	{asset: "Hyundai", patterns: compile(`현대차`, `현대자동차`)},
	{asset: "Nvidia", patterns: compile(`엔비디아`, `(?i)nvidia`, `(?i)nvda`)},
	{asset: "Tesla", patterns: compile(`테슬라`, `(?i)tesla`, `(?i)tsla`)},
	{asset: "Apple", patterns: compile(`애플`, `(?i)apple`, `(?i)aapl`)},
	{asset: "Google", patterns: compile(`구글`, `(?i)google`, `(?i)googl`, `알파벳`)},
	{asset: "Microsoft", patterns: compile(`마이크로소프트`, `(?i)microsoft`, `(?i)msft`)},
	{asset: "Amazon", patterns: compile(`아마존`, `(?i)amazon`, `(?i)amzn`)},
	{asset: "Meta", patterns: compile(`메타(?:\s*플랫폼)?`, `페이스북`, `(?i)meta\b`)},
	{asset: "Bitcoin", patterns: compile(`비트코인`, `(?i)bitcoin`, `(?i)btc`)},
	{asset: "Ethereum", patterns: compile(`이더리움`, `(?i)ethereum`, `(?i)\beth\b`)},
	{asset: "Gold", patterns: compile(`금값`, `금가격`, `골드`)},
	{asset: "Dollar", patterns: compile(`달러`, `환율`, `(?i)\busd\b`)},
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Detector finds canonical asset mentions in video titles.
type Detector struct {
	rules  []assetRule
	logger arbor.ILogger
}

// NewDetector creates a title asset detector. extra appends surface-form
// patterns from configuration, keyed by canonical asset: patterns for a
// known asset extend its rule, patterns for a new asset append a rule after
// the built-in table. Extra patterns are validated, not trusted.
func NewDetector(extra map[string][]string, logger arbor.ILogger) (*Detector, error) {
	rules := make([]assetRule, len(assetRules))
	copy(rules, assetRules)

	known := make(map[string]int, len(rules))
	for i, rule := range rules {
		known[rule.asset] = i
	}

	extraAssets := make([]string, 0, len(extra))
	for asset := range extra {
		extraAssets = append(extraAssets, asset)
	}
	sort.Strings(extraAssets)

	for _, asset := range extraAssets {
		compiled := make([]*regexp.Regexp, 0, len(extra[asset]))
		for _, p := range extra[asset] {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q for asset %s: %w", p, asset, err)
			}
			compiled = append(compiled, re)
		}
		if i, ok := known[asset]; ok {
			rules[i].patterns = append(append([]*regexp.Regexp{}, rules[i].patterns...), compiled...)
		} else {
			rules = append(rules, assetRule{asset: asset, patterns: compiled})
		}
	}

	return &Detector{rules: rules, logger: logger}, nil
}

// Detect returns the canonical assets mentioned in the title, ordered by the
// rule table, each asset at most once. No mentions returns an empty slice.
func (d *Detector) Detect(title string) []string {
	assets := make([]string, 0, 2)
	for _, rule := range d.rules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(title) {
				assets = append(assets, rule.asset)
				break
			}
		}
	}

	if len(assets) > 0 {
		d.logger.Debug().Str("title", title).Strs("assets", assets).Msg("Detected asset mentions")
	}
	return assets
}

// KnownAssets returns every asset this detector can produce, in rule order,
// configured extras included.
func (d *Detector) KnownAssets() []string {
	assets := make([]string, 0, len(d.rules))
	for _, rule := range d.rules {
		assets = append(assets, rule.asset)
	}
	return assets
}
