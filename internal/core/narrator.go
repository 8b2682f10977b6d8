package core

import (
	"fmt"
	"io"
)

// Narrator prints verbose progress lines. The zero value is silent.
type Narrator struct {
	Out     io.Writer
	Verbose bool
}

func NewNarrator(out io.Writer, verbose bool) Narrator {
	return Narrator{Out: out, Verbose: verbose}
}

func (n Narrator) Printf(format string, args ...any) {
	if !n.Verbose || n.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(n.Out, format+"\n", args...)
}
