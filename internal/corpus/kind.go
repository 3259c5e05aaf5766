// Package corpus walks a malware sample tree and classifies what it
// finds. It deliberately does not open samples beyond hashing; parsing
// stays in the analysis and ingest packages.
package corpus

import (
	"path/filepath"
	"strings"
)

// Kind is the coarse category a sample file falls into, decided purely
// by extension.
type Kind string

const (
	KindCode   Kind = "code"
	KindBinary Kind = "binary"
	KindDoc    Kind = "doc"
	KindOther  Kind = "other"
)

// Classifier maps file extensions onto sample kinds.
type Classifier struct {
	code   map[string]bool
	binary map[string]bool
	doc    map[string]bool
}

// NewClassifier builds a Classifier from extension lists (each entry
// including the leading dot).
func NewClassifier(code, binary, doc []string) *Classifier {
	return &Classifier{
		code:   toSet(code),
		binary: toSet(binary),
		doc:    toSet(doc),
	}
}

func toSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// Classify returns the kind for a file name. Extensionless files count
// as binaries: droppers and Linux executables usually ship without a
// suffix.
func (c *Classifier) Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case c.code[ext]:
		return KindCode
	case c.binary[ext] || ext == "":
		return KindBinary
	case c.doc[ext]:
		return KindDoc
	default:
		return KindOther
	}
}
