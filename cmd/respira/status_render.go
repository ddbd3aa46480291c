package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	statusLabelWidth = 20
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusPrinter writes sectioned "label: [KIND] detail" lines, colored when
// the destination is a terminal.
type statusPrinter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(p.out, p.paint(ansiBlue, heading))
	fmt.Fprintln(p.out, p.paint(ansiBlue, strings.Repeat("-", len(heading))))
}

func (p *statusPrinter) line(label string, kind statusKind, detail string) {
	fmt.Fprintln(p.out, renderStatusLine(label, kind, detail, p.colorize))
}

// check prints a pass/fail line; failures use failKind.
func (p *statusPrinter) check(label string, passed bool, failKind statusKind, detail string) {
	kind := statusOK
	if !passed {
		kind = failKind
	}
	p.line(label, kind, detail)
}

func (p *statusPrinter) paint(color, text string) string {
	if !p.colorize {
		return text
	}
	return color + text + ansiReset
}

func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	style := statusStyles[kind]
	badge := "[" + style.label + "]"
	if detail != "" {
		badge += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
