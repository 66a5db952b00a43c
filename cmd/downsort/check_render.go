package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// checkOutcome is the verdict printed in front of a check line.
type checkOutcome int

const (
	outcomeNote checkOutcome = iota
	outcomePass
	outcomeFail
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const checkNameWidth = 26

func (o checkOutcome) marker() string {
	switch o {
	case outcomePass:
		return "ok"
	case outcomeFail:
		return "FAIL"
	default:
		return "--"
	}
}

func (o checkOutcome) color() string {
	switch o {
	case outcomePass:
		return ansiGreen
	case outcomeFail:
		return ansiRed
	default:
		return ""
	}
}

// checkPrinter writes the grouped output of `downsort check`.
type checkPrinter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newCheckPrinter(out io.Writer) *checkPrinter {
	return &checkPrinter{out: out, colorize: isTerminal(out)}
}

func (p *checkPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	if p.colorize {
		title = ansiBold + title + ansiReset
	}
	fmt.Fprintln(p.out, title)
}

func (p *checkPrinter) line(outcome checkOutcome, name, detail string) {
	marker := fmt.Sprintf("%-4s", outcome.marker())
	if color := outcome.color(); p.colorize && color != "" {
		marker = color + marker + ansiReset
	}
	fmt.Fprintf(p.out, "  %s  %-*s %s\n", marker, checkNameWidth, name, detail)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
