package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"uppm/pkg/uppm/metadata"
	"uppm/pkg/uppm/reference"
)

// importDirective matches `#load "<reference text>"`, the directive
// syntax spec.md §4.D gives as its example across every engine.
var importDirective = regexp.MustCompile(`#load\s+"([^"]+)"`)

// base implements the shared header-location, import-resolution, and
// single-action-dispatch logic every concrete engine composes. Each
// engine supplies its comment delimiters, its extension, and the
// action name it actually supports.
type base struct {
	extension       string
	delims          metadata.Delimiters
	allowAssoc      bool
	supportedAction string

	// importTempDir is the caller-provided temporary_folder imported
	// script files are materialized under, mirroring
	// gitrepo.Options.TempDir's pattern. Empty selects os.TempDir().
	importTempDir string
}

// NewBase constructs an Engine from the shared header/import/dispatch
// logic, parameterized by extension, header delimiters, the OS
// association advisory flag, the single action name the engine
// supports, and the temporary folder imported scripts materialize
// under.
func NewBase(extension string, delims metadata.Delimiters, allowAssoc bool, supportedAction string, importTempDir string) Engine {
	return base{
		extension:       extension,
		delims:          delims,
		allowAssoc:      allowAssoc,
		supportedAction: supportedAction,
		importTempDir:   importTempDir,
	}
}

func (b base) Extension() string            { return b.extension }
func (b base) AllowSystemAssociation() bool { return b.allowAssoc }

func (b base) TryGetMeta(text string, self reference.Complete) (metadata.Meta, bool, error) {
	m, err := metadata.Extract(text, b.delims, self)
	if err != nil {
		return metadata.Meta{}, false, err
	}
	return m, true, nil
}

func (b base) TryGetScriptText(text string, imports []reference.Partial, parentRepo string, importFn Importer) (string, bool, error) {
	rewritten, err := resolveImports(text, parentRepo, importFn, 0, b.importTempDir, b.extension)
	if err != nil {
		return "", false, err
	}
	return rewritten, true, nil
}

func (b base) RunAction(rt Runtime, pack reference.Complete, action, scriptText string) (bool, error) {
	if action != b.supportedAction {
		return false, errors.Wrapf(ErrActionUnsupported, "%s engine only supports %q, got %q", b.extension, b.supportedAction, action)
	}
	if err := rt.Invoke(pack, action, scriptText); err != nil {
		return false, err
	}
	return true, nil
}

// resolveImports replaces every `#load "ref"` directive in text with a
// directive pointing at a materialized path for ref's resolved text,
// recursing through nested imports up to MaxImportDepth.
func resolveImports(text, parentRepo string, importFn Importer, depth int, tempDir, extension string) (string, error) {
	if depth > MaxImportDepth {
		return "", errors.Wrapf(ErrImportDepthExceeded, "exceeded %d levels", MaxImportDepth)
	}

	var rewriteErr error
	out := importDirective.ReplaceAllStringFunc(text, func(match string) string {
		if rewriteErr != nil {
			return match
		}
		sub := importDirective.FindStringSubmatch(match)
		refText := strings.TrimSpace(sub[1])

		if depth+1 > MaxImportDepth {
			rewriteErr = errors.Wrapf(ErrImportDepthExceeded, "exceeded %d levels", MaxImportDepth)
			return match
		}

		ref, err := reference.ParseText(refText)
		if err != nil {
			rewriteErr = errors.Wrapf(err, "invalid import reference %q", refText)
			return match
		}

		if importFn == nil {
			rewriteErr = errors.New("no importer available to resolve import directives")
			return match
		}

		importedText, err := importFn(ref, parentRepo, depth+1)
		if err != nil {
			rewriteErr = err
			return match
		}

		nested, err := resolveImports(importedText, parentRepo, importFn, depth+1, tempDir, extension)
		if err != nil {
			rewriteErr = err
			return match
		}

		path, err := materializedPath(tempDir, extension, ref)
		if err != nil {
			rewriteErr = err
			return match
		}
		if err := writeMaterialized(path, nested); err != nil {
			rewriteErr = err
			return match
		}

		return fmt.Sprintf(`#load "%s"`, path)
	})

	if rewriteErr != nil {
		return "", rewriteErr
	}
	return out, nil
}
