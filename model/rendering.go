package model

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"

	"github.com/logrusorgru/aurora"
)

const (
	gridPosBlock = "██"
	gridPosEmpty = "  "

	macosClearCmd = "clear"
)

// TerminalRenderer paints snapshots as two-character blocks
type TerminalRenderer struct {
	out io.Writer
	au  aurora.Aurora
}

// NewTerminalRenderer writes to out, coloring live cells when color is true
func NewTerminalRenderer(out io.Writer, color bool) *TerminalRenderer {
	return &TerminalRenderer{out: out, au: aurora.NewAurora(color)}
}

// Display renders the snapshot, one line per row
func (r *TerminalRenderer) Display(s Snapshot) error {
	w := bufio.NewWriter(r.out)
	live := r.au.Green(gridPosBlock).String()
	for row := range s.Rows {
		for col := range s.Cols {
			if s.Cells[row][col] {
				fmt.Fprint(w, live)
			} else {
				fmt.Fprint(w, gridPosEmpty)
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// Clear clears the terminal screen
func (r *TerminalRenderer) Clear() {
	cmd := exec.Command(macosClearCmd)
	cmd.Stdout = r.out
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(r.out, r.au.Red("Error clearing terminal:"), err)
	}
}
