package command

import (
	"fmt"
	"io"

	"uppm/pkg/uppm/reference"
)

// stubRuntime is the engine.Runtime the CLI wires into action.Runner.
// The scripting language runtime itself is an out-of-scope collaborator
// (spec.md §1's non-goals): concrete engines only know how to locate,
// validate, and resolve the imports of a script, not execute it. This
// stub reports what it was asked to run instead of running it, so
// `uppm run`/`uppm install` still exercise the whole resolver/action
// pipeline end to end.
type stubRuntime struct {
	out io.Writer
}

func (r stubRuntime) Invoke(pack reference.Complete, action, scriptText string) error {
	_, err := fmt.Fprintf(r.out, "would run %q on %s (%d bytes of script)\n", action, pack, len(scriptText))
	return err
}
