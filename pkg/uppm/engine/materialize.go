package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/reference"
)

// slugIllegal matches any character not safe to carry verbatim into a
// single path segment; the reference grammar's own ":" (version) and
// "@" (repository) delimiters fall out here along with anything a
// filesystem would reject.
var slugIllegal = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// refSlug renders ref as a filesystem-safe path segment. Two distinct
// references never collide here under ToPartial/String's own grammar
// (illegalComponentChars already rejects "/" and friends inside a
// component at parse time), so a straight character substitution is
// enough; the SHA1 fallback only guards a slug that substitution
// reduces to nothing.
func refSlug(ref reference.Partial) string {
	s := slugIllegal.ReplaceAllString(ref.String(), "-")
	if s == "" {
		sum := sha1.Sum([]byte(ref.String()))
		return hex.EncodeToString(sum[:])
	}
	return s
}

// materializedPath derives the scratch-file path for ref, resolved by
// the engine named extension, under tempDir: `<tempDir>/<extension>/
// <ref-slug>.<extension>`. The same import resolved twice within one
// run reuses one file. tempDir is the caller-provided temporary_folder
// (wiring.go's importsDir, or os.TempDir() if the caller left it
// unset).
func materializedPath(tempDir, extension string, ref reference.Partial) (string, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	dir := filepath.Join(tempDir, extension)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating import scratch dir %s", dir)
	}
	return filepath.Join(dir, refSlug(ref)+"."+extension), nil
}

func writeMaterialized(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "writing materialized import %s", path)
	}
	return nil
}
