package cmd

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/mapping"
	"github.com/Alia5/rawpad/rawinput"
)

// Buttons prints the names accepted in a profile's bindings table.
type Buttons struct{}

func (b *Buttons) Run(kctx *kong.Context) error {
	w := kctx.Stdout
	mouse := make([]string, 0, len(rawinput.MouseButtons))
	for _, m := range rawinput.MouseButtons {
		mouse = append(mouse, m.String())
	}
	fmt.Fprintf(w, "mouse:      %s\n", strings.Join(mouse, " "))
	fmt.Fprintf(w, "controller: %s\n", strings.Join(xbox360.ButtonNames(), " "))

	fmt.Fprintln(w, "defaults:")
	defaults := mapping.DefaultBindings()
	for _, m := range rawinput.MouseButtons {
		if pad, ok := defaults[m]; ok {
			fmt.Fprintf(w, "  %-6s -> %s\n", m, pad)
		}
	}
	return nil
}
