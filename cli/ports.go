package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-recplay/midi"
)

func newPortsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI input and output ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Lister == nil {
				defer midi.CloseDriver()
			}
			ins, outs := deps.lister()()
			out := deps.out()
			printPorts(out, "Inputs", ins)
			printPorts(out, "Outputs", outs)
			return nil
		},
	}
}

func printPorts(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, name := range names {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}
}
