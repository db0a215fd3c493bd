// Package streams re-exports the stream types of pkg/streams for CLI
// construction call sites that historically imported this path. In and
// Out (and their constructors) are defined once, in pkg/streams; this
// package only aliases them so cli/command can keep importing either
// path and still get the identical underlying type.
package streams

import (
	"io"

	pkgstreams "uppm/pkg/streams"
)

type In = pkgstreams.In

type Out = pkgstreams.Out

func NewIn(in io.ReadCloser) *In {
	return pkgstreams.NewIn(in)
}

func NewOut(out io.Writer) *Out {
	return pkgstreams.NewOut(out)
}
