package unconsole

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
)

type spinner struct {
	frames []string
	index  int
}

func newSpinner() spinner {
	return spinner{frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}}
}
func (s *spinner) tick()       { s.index = (s.index + 1) % len(s.frames) }
func (s spinner) View() string { return s.frames[s.index] }

// Reporter prints the run as it happens: a start line, one line per changed file, and
// a closing summary. The spinner line is only drawn when animate is set.
type Reporter struct {
	w          io.Writer
	animate    bool
	spinner    spinner
	mu         sync.Mutex
	cur, total int
	done       chan struct{}
	wg         sync.WaitGroup
}

func NewReporter(w io.Writer, animate bool) *Reporter {
	return &Reporter{w: w, animate: animate, spinner: newSpinner()}
}

func (r *Reporter) Start(msg string) {
	fmt.Fprintln(r.w, headerStyle.Render(msg))
	if !r.animate {
		return
	}
	r.done = make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.mu.Lock()
				r.spinner.tick()
				r.renderProgressLocked()
				r.mu.Unlock()
			}
		}
	}()
}

func (r *Reporter) Progress(cur, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur, r.total = cur, total
}

// Line prints a per-file line above the spinner.
func (r *Reporter) Line(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	fmt.Fprintln(r.w, s)
}

func (r *Reporter) Changed(path string, removed int) {
	r.Line(fmt.Sprintf("  %s %s %s", successStyle.Render("✓"), path, dimStyle.Render(fmt.Sprintf("(-%d)", removed))))
}

func (r *Reporter) Failed(fe *FileError) {
	r.Line(fmt.Sprintf("  %s %s", errorStyle.Render("✗"), fe.Error()))
}

func (r *Reporter) Stop() {
	if r.done != nil {
		close(r.done)
		r.wg.Wait()
		r.done = nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Reporter) renderProgressLocked() {
	fmt.Fprintf(r.w, "\r%s Scanning... %d/%d\x1b[K", r.spinner.View(), r.cur, r.total)
}

func (r *Reporter) clearLocked() {
	if r.animate {
		fmt.Fprint(r.w, "\r\x1b[K")
	}
}

func FormatSummary(s Summary) string {
	var b strings.Builder
	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message) + "\n")
	}

	if s.Root != "" {
		verb := "changed"
		if s.DryRun {
			verb = "would change"
		}
		line := fmt.Sprintf("Done. %d file(s) %s, %d statement(s) removed, %d scanned.", len(s.Modified), verb, s.Removed, s.Scanned)
		b.WriteString(successStyle.Render(line) + "\n")
	} else {
		renderList(&b, "Restored:", successStyle, s.Modified)
	}

	renderList(&b, "Failed:", errorStyle, s.Failed)
	if s.HistoryID != "" {
		b.WriteString(dimStyle.Render("History entry "+s.HistoryID+" (undo with --undo)") + "\n")
	}
	return b.String()
}

func renderList(b *strings.Builder, title string, style lipgloss.Style, list []string) {
	if len(list) == 0 {
		return
	}
	b.WriteString(style.Render(title) + "\n")
	for _, f := range list {
		b.WriteString(fmt.Sprintf("  %s\n", f))
	}
}
