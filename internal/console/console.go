// Package console prints the progress of the demo programs.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
const (
	ColorAccent  = lipgloss.Color("#0969da")
	ColorError   = lipgloss.Color("#cf222e")
	ColorSuccess = lipgloss.Color("#1a7f37")
	ColorMuted   = lipgloss.Color("#656d76")
)

// Printer writes styled lines. Colors are dropped when w is not a terminal.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	section  lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	query    lipgloss.Style
	response lipgloss.Style
	muted    lipgloss.Style
	label    lipgloss.Style
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)

	return &Printer{
		w:        w,
		section:  r.NewStyle().Bold(true).Foreground(ColorAccent),
		success:  r.NewStyle().Foreground(ColorSuccess),
		failure:  r.NewStyle().Foreground(ColorError),
		query:    r.NewStyle().Bold(true),
		response: r.NewStyle().Foreground(ColorAccent),
		muted:    r.NewStyle().Foreground(ColorMuted),
		label:    r.NewStyle().Bold(true),
	}
}

// Section prints a blank line followed by "--- title ---".
func (p *Printer) Section(title string) {
	p.println("\n" + p.section.Render("--- "+title+" ---"))
}

// Info prints a muted line.
func (p *Printer) Info(format string, args ...any) {
	p.println(p.muted.Render(fmt.Sprintf(format, args...)))
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...any) {
	p.println(p.success.Render("✅ " + fmt.Sprintf(format, args...)))
}

// Failure prints a line prefixed with a cross mark.
func (p *Printer) Failure(format string, args ...any) {
	p.println(p.failure.Render("❌ " + fmt.Sprintf(format, args...)))
}

// Query echoes a user query.
func (p *Printer) Query(q string) {
	p.println("\n" + p.query.Render(">>> User Query: ") + q)
}

// Response prints the final answer of an agent.
func (p *Printer) Response(text string) {
	p.println(p.response.Render("<<< Agent Response: ") + text)
}

// Detail prints "label: value".
func (p *Printer) Detail(label string, value any) {
	p.println(p.label.Render(label+":") + " " + formatValue(value))
}

// State prints a titled section listing the state keys in sorted order.
func (p *Printer) State(title string, state map[string]any) {
	p.Section(title)

	if len(state) == 0 {
		p.println(p.muted.Render("(empty)"))
		return
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p.println("  " + p.label.Render(k+":") + " " + formatValue(state[k]))
	}
}

func (p *Printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = io.WriteString(p.w, line+"\n")
}

func formatValue(v any) string {
	if v == nil {
		return "<none>"
	}

	s := fmt.Sprint(v)

	return strings.TrimRight(s, "\n")
}
