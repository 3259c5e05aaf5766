package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultMaxFileSize is the maximum file size to process (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// IgnoreFileName is the per-corpus ignore file, gitignore syntax.
const IgnoreFileName = ".malsiftignore"

// FileInfo holds metadata about a single sample discovered during
// traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Path relative to the corpus root.
	Size        int64  // File size in bytes.
	Ext         string // Lowercased extension, leading dot included.
	Kind        Kind   // code, binary or doc.
	ContentHash string // SHA-256 hex digest of the file content.
	Family      string // Guessed malware family, "Unknown" if no match.
	Year        int    // Year extracted from the path.
}

// WalkConfig controls the behaviour of the Walk function.
type WalkConfig struct {
	Root        string   // Corpus root directory.
	Include     []string // Glob patterns; only matching files are included.
	Exclude     []string // Glob patterns; matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = default).
	MaxFiles    int      // Stop after this many files (0 = no limit).

	Classifier *Classifier // Required: decides each file's kind.
	Families   []string    // Known family names for path matching.
}

// Walk traverses the corpus rooted at config.Root and returns metadata
// for every code, binary and doc sample that passes filtering. Files of
// unrecognized kinds, oversized files and anything matched by
// .malsiftignore are left out. Unreadable entries are skipped rather
// than aborting the walk; one bad file must not sink an ingest run.
func Walk(config WalkConfig) ([]FileInfo, error) {
	if config.Classifier == nil {
		return nil, fmt.Errorf("corpus: classifier is required")
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve root: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("corpus: root %s: %w", config.Root, err)
	}

	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	ignorer := loadIgnoreFile(filepath.Join(root, IgnoreFileName))

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		name := d.Name()

		// Skip default-excluded directories.
		if d.IsDir() {
			if shouldExcludeDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process regular files.
		if !d.Type().IsRegular() {
			return nil
		}

		if config.MaxFiles > 0 && len(files) >= config.MaxFiles {
			return filepath.SkipAll
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if name == IgnoreFileName {
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(relSlash) {
			return nil
		}

		// Apply user-defined include/exclude filters.
		if !MatchesInclude(relSlash, config.Include) {
			return nil
		}
		if MatchesExclude(relSlash, config.Exclude) {
			return nil
		}

		kind := config.Classifier.Classify(name)
		if kind == KindOther {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		// Skip files exceeding the size limit.
		if info.Size() > maxSize {
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:        path,
			RelPath:     relSlash,
			Size:        info.Size(),
			Ext:         strings.ToLower(filepath.Ext(name)),
			Kind:        kind,
			ContentHash: hash,
			Family:      Family(relSlash, config.Families),
			Year:        Year(relSlash),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("corpus: traversal: %w", err)
	}

	return files, nil
}

// defaultExcludedDirs are directory names skipped during traversal.
// Corpus mirrors often carry VCS clutter and unpacked archives.
var defaultExcludedDirs = []string{
	".git",
	".svn",
	"__pycache__",
	"node_modules",
	".malsift",
	".idea",
	".vscode",
}

// shouldExcludeDir checks whether a directory name matches any default
// exclusion. Used during traversal to skip entire subtrees.
func shouldExcludeDir(name string) bool {
	for _, excl := range defaultExcludedDirs {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// MatchesInclude returns true if the given relative path matches any of
// the include patterns. If patterns is empty, everything is included.
func MatchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// MatchesExclude returns true if the given relative path matches any of
// the exclude patterns. If patterns is empty, nothing is excluded.
func MatchesExclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(relPath, patterns)
}

// matchesAny checks if relPath matches any of the given glob patterns.
// It uses doublestar for ** support and also matches bare filenames.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)

		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}

		base := filepath.Base(normalized)
		if matched, err := doublestar.PathMatch(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// loadIgnoreFile compiles the corpus ignore file if present.
func loadIgnoreFile(path string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

// hashFile computes the SHA-256 digest of the given file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
