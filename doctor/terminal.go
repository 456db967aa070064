package doctor

import (
	"os"

	"golang.org/x/term"
)

var savedTerminal *term.State

// saveTerminal remembers the terminal mode so resetTerminal can undo what
// an interrupted check leaves behind, such as echoed key presses.
func saveTerminal() {
	if s, err := term.GetState(int(os.Stdin.Fd())); err == nil {
		savedTerminal = s
	}
}

func resetTerminal() {
	if savedTerminal != nil {
		term.Restore(int(os.Stdin.Fd()), savedTerminal)
	}
}
