package controller

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/mcpds/mcpds-setup/pkg/runner"
)

// spinnerProgress shows a spinner on w when it is a terminal.
func spinnerProgress(w io.Writer) runner.Progress {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return runner.NoProgress
	}
	return func(activity string) func() {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
		s.Suffix = " " + activity
		s.Start()
		return s.Stop
	}
}
