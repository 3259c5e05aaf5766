package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vxlab/malsift/internal/analysis"
)

// Caps on how much of a binary's symbol tables end up in the embedded
// description. Past these counts the text stops adding signal.
const (
	maxImportsInText = 50
	maxExportsInText = 20
)

// RenderBinaryText builds the prose description of a binary sample that
// gets embedded in place of source text. Imports and exports double as
// lexical anchors for re-ranking: a query mentioning CreateRemoteThread
// lands on binaries that import it.
func RenderBinaryText(name string, feats *analysis.BinaryFeatures) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Binary sample: %s\n", filepath.Base(name))

	if len(feats.Imports) > 0 {
		imports := feats.Imports
		if len(imports) > maxImportsInText {
			imports = imports[:maxImportsInText]
		}
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(imports, ", "))
	}
	if len(feats.Exports) > 0 {
		exports := feats.Exports
		if len(exports) > maxExportsInText {
			exports = exports[:maxExportsInText]
		}
		fmt.Fprintf(&b, "Exports: %s\n", strings.Join(exports, ", "))
	}
	if len(feats.SuspiciousTraits) > 0 {
		fmt.Fprintf(&b, "Suspicious characteristics: %s\n", strings.Join(feats.SuspiciousTraits, "; "))
	}
	if len(feats.Sections) > 0 {
		var names []string
		for _, s := range feats.Sections {
			names = append(names, fmt.Sprintf("%s (%.2f)", s.Name, s.Entropy))
		}
		fmt.Fprintf(&b, "Sections: %s\n", strings.Join(names, ", "))
	}

	return b.String()
}
