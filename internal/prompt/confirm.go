package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stdout,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// ConfirmDelete asks before a timelapse is removed from the service.
// Without a terminal the caller must pass force.
func (c Confirmer) ConfirmDelete(name string, force bool) (bool, error) {
	return c.confirm(fmt.Sprintf("Delete timelapse %q? This cannot be undone. (y/n): ", name), force, "use --yes to delete")
}

// ConfirmStop asks before a running capture is stopped.
func (c Confirmer) ConfirmStop(force bool) (bool, error) {
	return c.confirm("Stop the running timelapse? (y/n): ", force, "use --yes to stop")
}

func (c Confirmer) confirm(question string, force bool, hint string) (bool, error) {
	if force {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("non-interactive stdin: %s", hint)
	}
	if c.Out != nil {
		fmt.Fprint(c.Out, question)
	}
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
