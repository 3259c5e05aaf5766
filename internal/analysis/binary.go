package analysis

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// SectionInfo describes one PE section.
type SectionInfo struct {
	Name        string  `json:"name"`
	VirtualSize uint32  `json:"virtual_size"`
	Entropy     float64 `json:"entropy"`
}

// BinaryFeatures is the structural triage of an executable sample.
type BinaryFeatures struct {
	Imports          []string      `json:"imports"`
	Exports          []string      `json:"exports"`
	Sections         []SectionInfo `json:"sections"`
	SuspiciousTraits []string      `json:"suspicious_characteristics"`
}

// peExtensions are the suffixes AnalyzeBinary attempts to parse. Other
// binary kinds (ELF, Mach-O, extensionless droppers) are indexed by name
// only.
var peExtensions = map[string]bool{".exe": true, ".dll": true, ".sys": true}

// highEntropyThreshold flags sections that are likely packed or
// encrypted. Plain code rarely exceeds 7.0 bits per byte.
const highEntropyThreshold = 7.0

// AnalyzeBinary parses a PE sample and extracts imports, exports and
// per-section entropy. Malware corpora are full of truncated and
// deliberately malformed binaries, so a parse error is returned together
// with whatever was extracted before the failure; callers index the
// partial result and surface the error as a per-file warning.
func AnalyzeBinary(path string) (*BinaryFeatures, error) {
	feats := &BinaryFeatures{
		Imports:          []string{},
		Exports:          []string{},
		Sections:         []SectionInfo{},
		SuspiciousTraits: []string{},
	}

	if !peExtensions[strings.ToLower(filepath.Ext(path))] {
		return feats, nil
	}

	f, err := pe.Open(path)
	if err != nil {
		return feats, fmt.Errorf("parsing PE %s: %w", path, err)
	}
	defer f.Close()

	if syms, err := f.ImportedSymbols(); err == nil {
		for _, sym := range syms {
			// debug/pe formats imports as "Func:dll.dll".
			if name, dll, ok := strings.Cut(sym, ":"); ok {
				feats.Imports = append(feats.Imports, dll+"::"+name)
			} else {
				feats.Imports = append(feats.Imports, sym)
			}
		}
	}

	feats.Exports = exportedNames(f)

	for _, section := range f.Sections {
		data, err := section.Data()
		if err != nil {
			continue
		}
		name := strings.TrimRight(section.Name, "\x00")
		entropy := shannonEntropy(data)
		feats.Sections = append(feats.Sections, SectionInfo{
			Name:        name,
			VirtualSize: section.VirtualSize,
			Entropy:     entropy,
		})
		if entropy > highEntropyThreshold {
			feats.SuspiciousTraits = append(feats.SuspiciousTraits,
				fmt.Sprintf("High entropy section: %s (%.2f)", name, entropy))
		}
	}

	return feats, nil
}

// shannonEntropy computes bits of entropy per byte, in [0, 8].
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// exportedNames reads the export name table. debug/pe stops at imports,
// so the export directory is walked by hand.
func exportedNames(f *pe.File) []string {
	names := []string{}

	var dirs [16]pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = oh.DataDirectory
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory
	default:
		return names
	}

	exportDir := dirs[0]
	if exportDir.VirtualAddress == 0 || exportDir.Size == 0 {
		return names
	}

	// IMAGE_EXPORT_DIRECTORY: NumberOfNames at offset 24,
	// AddressOfNames at offset 32.
	hdr := readRVA(f, exportDir.VirtualAddress, 40)
	if len(hdr) < 40 {
		return names
	}
	numNames := binary.LittleEndian.Uint32(hdr[24:])
	namesRVA := binary.LittleEndian.Uint32(hdr[32:])
	if numNames == 0 || numNames > 1<<16 {
		return names
	}

	table := readRVA(f, namesRVA, int(numNames)*4)
	for i := 0; i+4 <= len(table); i += 4 {
		nameRVA := binary.LittleEndian.Uint32(table[i:])
		raw := readRVA(f, nameRVA, 256)
		if end := bytes.IndexByte(raw, 0); end >= 0 {
			raw = raw[:end]
		}
		if len(raw) > 0 {
			names = append(names, string(raw))
		}
	}
	return names
}

// readRVA resolves a relative virtual address to raw section bytes,
// returning at most size bytes. Reads past section bounds are clipped.
func readRVA(f *pe.File, rva uint32, size int) []byte {
	for _, s := range f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.VirtualSize {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil
		}
		off := int(rva - s.VirtualAddress)
		if off >= len(data) {
			return nil
		}
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		return data[off:end]
	}
	return nil
}
