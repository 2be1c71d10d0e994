package tui

import "github.com/mattn/go-runewidth"

// wrapByWidth hard-wraps s into chunks no wider than width cells
func wrapByWidth(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	var cur []rune
	cw := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if cw+rw > width && len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
			cw = 0
		}
		cur = append(cur, r)
		cw += rw
	}
	if len(cur) > 0 || len(out) == 0 {
		out = append(out, string(cur))
	}
	return out
}
