package streams

import (
	"github.com/moby/term"
)

// commonStream is shared between [In] and [Out], holding the bits needed
// to query and restore the state of a terminal file descriptor.
type commonStream struct {
	fd         uintptr
	isTerminal bool
	state      *term.State
}

// FD returns the file descriptor number for this stream.
func (s *commonStream) FD() uintptr {
	return s.fd
}

// IsTerminal returns true if this stream is connected to a terminal.
func (s *commonStream) IsTerminal() bool {
	return s.isTerminal
}

// RestoreTerminal restores the state of the terminal connected to this
// stream, if SetRawTerminal was previously called. It is a no-op otherwise.
func (s *commonStream) RestoreTerminal() {
	if s.state != nil {
		_ = term.RestoreTerminal(s.fd, s.state)
	}
}
