package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
)

// printer renders check outcomes. Styles degrade to plain text when color
// is disabled.
type printer struct {
	out io.Writer

	pass   lipgloss.Style
	fail   lipgloss.Style
	rule   lipgloss.Style
	detail lipgloss.Style
}

func newPrinter(out io.Writer, color bool) *printer {
	p := &printer{out: out}
	if color {
		p.pass = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
		p.fail = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
		p.rule = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
		p.detail = lipgloss.NewStyle().Faint(true)
	} else {
		plain := lipgloss.NewStyle()
		p.pass, p.fail, p.rule, p.detail = plain, plain, plain, plain
	}
	return p
}

func (p *printer) success(path string, report *Report) {
	fmt.Fprintf(p.out, "%s %s\n", p.pass.Render("ok"), path)
	fmt.Fprintf(p.out, "  %s\n", p.detail.Render(
		fmt.Sprintf("%d classes, %d blocks, %d rules", report.Classes, report.Blocks, len(report.Rules))))
	for _, rule := range report.Rules {
		fmt.Fprintf(p.out, "  %s\n", p.rule.Render(rule))
	}
}

// failure prints every collected diagnostic, one line each.
func (p *printer) failure(path string, err error) {
	fmt.Fprintf(p.out, "%s %s\n", p.fail.Render("error"), path)
	for _, e := range multierr.Errors(err) {
		fmt.Fprintf(p.out, "  %s\n", e.Error())
	}
}
