// Package report renders engine reports for people and machines and
// publishes them to NATS.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/c360studio/hexguard/engine"
)

// Formats accepted by NewRenderer.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Renderer writes a report.
type Renderer interface {
	Render(w io.Writer, r *engine.Report) error
}

// NewRenderer returns the renderer for format.
func NewRenderer(format string, colored, verbose bool) (Renderer, error) {
	switch format {
	case FormatText, "":
		return &TextRenderer{Color: colored, Verbose: verbose}, nil
	case FormatJSON:
		return &JSONRenderer{Indent: true}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// JSONRenderer writes the report as JSON.
type JSONRenderer struct {
	Indent bool
}

// Render implements Renderer.
func (j *JSONRenderer) Render(w io.Writer, r *engine.Report) error {
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// TextRenderer writes a terminal summary: one line per rule, the new
// violations under each failed rule, and a closing total.
type TextRenderer struct {
	Color bool
	// Verbose also lists baselined violations.
	Verbose bool
}

type palette struct {
	pass, fail, known, header, dim func(a ...interface{}) string
}

func (t *TextRenderer) palette() palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if t.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		pass:   mk(color.FgGreen),
		fail:   mk(color.FgRed, color.Bold),
		known:  mk(color.FgYellow),
		header: mk(color.FgCyan, color.Bold),
		dim:    mk(color.FgHiBlack),
	}
}

// Render implements Renderer.
func (t *TextRenderer) Render(w io.Writer, r *engine.Report) error {
	p := t.palette()
	ew := &errWriter{w: w}

	title := "Architecture check"
	if r.Frozen {
		title = "Architecture baseline frozen"
	}
	ew.printf("%s %s\n\n", p.header(title), p.dim("run "+r.RunID))

	for _, res := range r.Results {
		switch {
		case r.Frozen:
			ew.printf("  %s %s %s\n", p.known("*"), res.RuleID, p.dim(fmt.Sprintf("(%d accepted)", len(res.Known))))
		case res.Passed():
			suffix := ""
			if len(res.Known) > 0 {
				suffix = " " + p.known(fmt.Sprintf("(%d known)", len(res.Known)))
			}
			ew.printf("  %s %s%s\n", p.pass("✓"), res.RuleID, suffix)
		default:
			ew.printf("  %s %s %s\n", p.fail("✗"), res.RuleID, p.fail(fmt.Sprintf("(%d new)", len(res.New))))
			ew.printf("      %s\n", p.dim(res.Description))
			for _, v := range res.New {
				ew.printf("      %s %s\n", p.fail("NEW"), v.Message)
			}
		}
		if t.Verbose && !r.Frozen {
			for _, v := range res.Known {
				ew.printf("      %s %s\n", p.known("known"), v.Message)
			}
		}
	}

	failed := len(r.FailedRules())
	summary := fmt.Sprintf("%d rules, %d failed, %d new violations, %d known",
		len(r.Results), failed, r.NewCount(), r.KnownCount())
	switch {
	case r.Frozen:
		ew.printf("\n%s\n", p.known(fmt.Sprintf("%d rules, %d violations accepted", len(r.Results), r.KnownCount())))
	case failed > 0:
		ew.printf("\n%s\n", p.fail(summary))
	default:
		ew.printf("\n%s\n", p.pass(summary))
	}
	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
