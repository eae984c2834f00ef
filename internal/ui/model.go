// Package ui is the interactive boundary: a bubbletea event loop that feeds
// key events into the query session and renders its result pages. It never
// does filesystem or cache I/O inline; scanning and ranking run as commands
// off the loop.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/Vrohs/winfuzz/internal/scanner"
	"github.com/Vrohs/winfuzz/internal/session"
)

// scanPollInterval is how often the loop polls index growth while scanning.
const scanPollInterval = 100 * time.Millisecond

// ScanRunner performs the full scan (and any cache persistence) and blocks
// until done. It runs inside a tea command, never on the event loop.
type ScanRunner func(ctx context.Context) (scanner.Outcome, error)

type (
	scanDoneMsg struct {
		outcome scanner.Outcome
		err     error
	}
	resultsMsg struct{ res session.Result }
	scanTickMsg time.Time
)

// Model is the root bubbletea model for the finder.
type Model struct {
	input textinput.Model
	spin  spinner.Model
	sess  *session.Session

	runScan    ScanRunner // nil on a cache hit
	progressFn func() scanner.Progress
	cancelScan context.CancelFunc
	scanCtx    context.Context

	scanning  bool
	scanStart time.Time
	lastCount int64
	outcome   *scanner.Outcome
	warning   string

	pageSize int
	width    int
	height   int

	choice    string
	cancelled bool
}

// New builds the model. runScan may be nil when the index was hydrated from
// cache; the model then starts in the ready state.
func New(sess *session.Session, pageSize int, runScan ScanRunner, progressFn func() scanner.Progress) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		input:      ti,
		spin:       sp,
		sess:       sess,
		runScan:    runScan,
		progressFn: progressFn,
		scanCtx:    ctx,
		cancelScan: cancel,
		scanning:   runScan != nil,
		scanStart:  time.Now(),
		pageSize:   pageSize,
	}
}

// Choice returns the confirmed path, empty when the session was cancelled.
func (m Model) Choice() string { return m.choice }

// Cancelled reports whether the user aborted.
func (m Model) Cancelled() bool { return m.cancelled }

// Init starts the scan, the spinner, and the initial ranking pass.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.rankCmd()}
	if m.scanning {
		cmds = append(cmds, m.spin.Tick, m.scanCmd(), scanTick())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.sess.Cancel()
			m.cancelled = true
			m.cancelScan()
			return m, tea.Quit

		case "enter":
			if rec, ok := m.sess.Confirm(); ok {
				m.choice = rec.Path
				m.cancelScan()
				return m, tea.Quit
			}
			return m, nil

		case "up":
			m.sess.MoveUp()
			return m, nil
		case "down":
			m.sess.MoveDown()
			return m, nil
		case "pgup":
			m.sess.PageUp()
			return m, nil
		case "pgdown":
			m.sess.PageDown()
			return m, nil

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			prev := m.sess.Revision()
			if m.sess.SetQuery(m.input.Value()) != prev {
				return m, tea.Batch(cmd, m.rankCmd())
			}
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case scanTickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmds []tea.Cmd
		if p := m.progressFn(); p.Records != m.lastCount && m.sess.AllowGrowthRefilter() {
			m.lastCount = p.Records
			cmds = append(cmds, m.rankCmd())
		}
		cmds = append(cmds, scanTick())
		return m, tea.Batch(cmds...)

	case scanDoneMsg:
		m.scanning = false
		m.outcome = &msg.outcome
		if msg.err != nil && !msg.outcome.Cancelled {
			m.warning = fmt.Sprintf("scan incomplete: %v", msg.err)
		}
		// One final pass against the complete index.
		return m, m.rankCmd()

	case resultsMsg:
		m.sess.Apply(msg.res)
		return m, nil
	}

	return m, nil
}

func (m Model) rankCmd() tea.Cmd {
	return func() tea.Msg {
		return resultsMsg{res: m.sess.Compute()}
	}
}

func (m Model) scanCmd() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.runScan(m.scanCtx)
		return scanDoneMsg{outcome: outcome, err: err}
	}
}

func scanTick() tea.Cmd {
	return tea.Tick(scanPollInterval, func(t time.Time) tea.Msg {
		return scanTickMsg(t)
	})
}

// View renders the finder.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WinFuzz"))
	b.WriteString("\n\n")

	b.WriteString(queryStyle.Render(m.input.View()))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	matches := m.sess.Matches()
	if len(matches) == 0 {
		b.WriteString(statusStyle.Render("No matches found."))
		b.WriteString("\n")
	} else {
		page, selected, offset := m.sess.Page()
		for i, match := range page {
			abs := offset + i
			line := m.renderRow(match.Record.Path, match.Record.Name, abs == selected)
			b.WriteString(line)
			b.WriteString("\n")
		}
		if len(matches) > m.pageSize {
			current := offset/m.pageSize + 1
			total := (len(matches) + m.pageSize - 1) / m.pageSize
			b.WriteString(statusStyle.Render(fmt.Sprintf("Page %d/%d", current, total)))
			b.WriteString("\n")
		}
	}

	if m.warning != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.warning))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ navigate · pgup/pgdn page · enter select · esc quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) statusLine() string {
	count := len(m.sess.Matches())
	if m.scanning {
		p := m.progressFn()
		elapsed := time.Since(m.scanStart).Seconds()
		rate := int64(0)
		if elapsed > 0 {
			rate = int64(float64(p.Records) / elapsed)
		}
		return m.spin.View() + statusStyle.Render(fmt.Sprintf(
			"Indexing... %d files (%d/sec) · %d matches", p.Records, rate, count))
	}

	status := fmt.Sprintf("%d matches", count)
	if m.outcome != nil {
		status += fmt.Sprintf(" · %d files indexed in %s",
			m.outcome.Records, m.outcome.Elapsed.Round(time.Millisecond))
		if m.outcome.SkippedUnits > 0 {
			status += fmt.Sprintf(" · %d dirs skipped", m.outcome.SkippedUnits)
		}
	}
	return successStyle.Render(status)
}

// renderRow renders "name (directory)" truncated to the terminal width.
func (m Model) renderRow(path, name string, selected bool) string {
	dir := filepath.Dir(path)

	width := m.width
	if width <= 0 {
		width = 80
	}
	line := fmt.Sprintf("%s (%s)", name, dir)
	line = runewidth.Truncate(line, width-4, "…")

	if selected {
		return selectedStyle.Render("> " + line)
	}
	return "  " + fileNameStyle.Render(name) + " " + dirNameStyle.Render(
		runewidth.Truncate("("+dir+")", width-4-runewidth.StringWidth(name), "…"))
}
