package tui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/njyeung/threads/dom"
)

const defaultPrintWidth = 80

// Print renders doc once, without the event loop
func Print(w io.Writer, doc *dom.Document, width int) error {
	for _, l := range renderDocument(doc, width, nil, nil, "") {
		if _, err := fmt.Fprintln(w, l.text); err != nil {
			return err
		}
	}
	return nil
}

// TerminalWidth returns the column count of stdout, or a default when stdout
// is not a terminal
func TerminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return defaultPrintWidth
	}
	return int(ws.Col)
}
