// Package analysis holds the static triage primitives: keyword feature
// extraction, category routing, YARA rule generation and PE inspection.
package analysis

import "strings"

// FeatureSet is the result of scanning a sample for known indicators.
// Each list preserves the configured scan order, not the order of
// appearance in the sample.
type FeatureSet struct {
	APICalls   []string `json:"api_calls"`
	NetworkOps []string `json:"network_operations"`
	CryptoOps  []string `json:"crypto_operations"`
}

// Empty reports whether no indicators were found.
func (f FeatureSet) Empty() bool {
	return len(f.APICalls) == 0 && len(f.NetworkOps) == 0 && len(f.CryptoOps) == 0
}

// Terms returns all matched indicators as a single list: API names first,
// then network terms, then crypto terms. Duplicates across categories are
// kept.
func (f FeatureSet) Terms() []string {
	terms := make([]string, 0, len(f.APICalls)+len(f.NetworkOps)+len(f.CryptoOps))
	terms = append(terms, f.APICalls...)
	terms = append(terms, f.NetworkOps...)
	terms = append(terms, f.CryptoOps...)
	return terms
}

// Extractor scans text for the indicator lists it was built with.
type Extractor struct {
	apis    []string
	network []string
	crypto  []string
}

// NewExtractor builds an Extractor over the given ordered indicator
// lists. The lists are scanned in order on every call, so the order of
// extracted features is stable across runs.
func NewExtractor(apis, network, crypto []string) *Extractor {
	return &Extractor{apis: apis, network: network, crypto: crypto}
}

// Extract scans text for configured indicators. Matching is literal
// case-insensitive substring containment: "OpenProcessToken" matches the
// "OpenProcess" indicator, and a comment mentioning "socket" counts the
// same as a call. Each indicator appears at most once regardless of how
// often it occurs. API hits keep the configured casing; network and
// crypto hits are reported as configured (lowercase).
func (e *Extractor) Extract(text string) FeatureSet {
	fs := FeatureSet{
		APICalls:   []string{},
		NetworkOps: []string{},
		CryptoOps:  []string{},
	}
	lower := strings.ToLower(text)

	for _, api := range e.apis {
		if strings.Contains(lower, strings.ToLower(api)) {
			fs.APICalls = append(fs.APICalls, api)
		}
	}
	for _, p := range e.network {
		if strings.Contains(lower, strings.ToLower(p)) {
			fs.NetworkOps = append(fs.NetworkOps, p)
		}
	}
	for _, p := range e.crypto {
		if strings.Contains(lower, strings.ToLower(p)) {
			fs.CryptoOps = append(fs.CryptoOps, p)
		}
	}
	return fs
}
