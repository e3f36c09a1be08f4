package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumBlockSize is the read size used when hashing file content
const ChecksumBlockSize = 64 * 1024

// CalculateChecksum calculates the SHA256 checksum of a file, streaming it
// in ChecksumBlockSize blocks
func CalculateChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ChecksumReader(f)
}

// ChecksumReader hashes everything readable from r
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChecksumBlockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsHidden reports whether a file or directory name carries the hidden marker
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ExclusionSet holds directory-name tokens that must never be traversed
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from tokens, ignoring blanks
func NewExclusionSet(tokens []string) ExclusionSet {
	set := make(ExclusionSet, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// ExcludesName reports whether a single directory name is excluded, either
// by token or by the hidden marker
func (s ExclusionSet) ExcludesName(name string) bool {
	if IsHidden(name) {
		return true
	}
	_, ok := s[name]
	return ok
}

// ExcludesPath reports whether any segment of a path relative to the scan
// root matches a token
func (s ExclusionSet) ExcludesPath(rel string) bool {
	rel = filepath.Clean(rel)
	if rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if _, ok := s[seg]; ok {
			return true
		}
	}
	return false
}

// Tokens returns the configured tokens
func (s ExclusionSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	return out
}
