package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/reveal"
)

// playCommand creates the play command for animating a run in the terminal.
func (c *CLI) playCommand() *cobra.Command {
	var (
		flags runFlags
		speed float64
	)

	cmd := &cobra.Command{
		Use:   "play [document.json]",
		Short: "Animate a run in the terminal",
		Long: `Animate a run in the terminal. Without a document the graph is loaded from Neo4j.

Keys: space pause/resume, r restart, +/- change speed, q quit.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			ctx := cmd.Context()
			g, _, err := c.loadDocument(ctx, path)
			if err != nil {
				return err
			}

			opts := flags.options(cmd, c.cfg.RevealOptions())
			// The terminal belongs to the TUI while it runs.
			opts.Logger = log.New(io.Discard)
			s, _ := c.newScheduler(g, nil, opts)

			m := newPlayModel(s, speed)
			final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if pm, ok := final.(playModel); ok {
				p := pm.s.Progress()
				printSuccess("Revealed %d/%d nodes, placed %d/%d inferences in %d ticks",
					p.Revealed, p.Primary, p.Placed, p.Derived, pm.s.Ticks())
				for _, d := range pm.s.Diagnostics() {
					printWarning("%s %s", d.Code, d.NodeID)
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	return cmd
}

// =============================================================================
// playModel - Animated run
// =============================================================================

// playTickMsg asks the model to advance the scheduler. Ticks from an older
// generation (before a pause or restart) are ignored.
type playTickMsg struct{ gen int }

const (
	playLogSize  = 6
	playBarWidth = 30
	minSpeed     = 0.25
	maxSpeed     = 16
)

var (
	treeLineStyle = lipgloss.NewStyle().Foreground(colorWhite)
	treeNewStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
)

type playModel struct {
	s      *reveal.Scheduler
	bar    progress.Model
	gen    int
	speed  float64
	paused bool
	done   bool
	last   string
	log    []string
	height int
}

func newPlayModel(s *reveal.Scheduler, speed float64) playModel {
	if speed <= 0 {
		speed = 1
	}
	bar := progress.New(
		progress.WithSolidFill(string(colorCyan)),
		progress.WithWidth(playBarWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(colorDim)
	return playModel{s: s, bar: bar, speed: speed, height: 24}
}

func (m playModel) Init() tea.Cmd {
	return m.next(0)
}

func (m playModel) next(d time.Duration) tea.Cmd {
	gen := m.gen
	if d <= 0 {
		return func() tea.Msg { return playTickMsg{gen: gen} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return playTickMsg{gen: gen} })
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
			m.gen++
			if !m.paused && !m.done {
				return m, m.next(0)
			}
		case "r":
			m.s.Reset()
			m.gen++
			m.done, m.paused = false, false
			m.last, m.log = "", nil
			return m, m.next(0)
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, minSpeed)
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height, 10)
	case playTickMsg:
		if msg.gen != m.gen || m.paused || m.done {
			return m, nil
		}
		step := m.s.Tick()
		m.record(step)
		if step.Outcome.Done() {
			m.done = true
			return m, nil
		}
		return m, m.next(time.Duration(float64(step.Delay) / m.speed))
	}
	return m, nil
}

func (m *playModel) record(step reveal.Step) {
	if step.NodeID != "" {
		m.last = step.NodeID
	}
	m.log = append(m.log, step.String())
	if len(m.log) > playLogSize {
		m.log = m.log[len(m.log)-playLogSize:]
	}
}

func (m playModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("growtree"))
	b.WriteString(StyleDim.Render("  " + m.s.RunID()))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("space pause  r restart  +/- speed  q quit"))
	b.WriteString("\n\n")

	tree := m.treeView()
	overlay := m.overlayView()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tree, "    ", overlay))
	b.WriteString("\n\n")

	for _, line := range m.log {
		b.WriteString(StyleDim.Render("  " + line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

// treeView lists visible primary nodes indented by depth, newest last,
// clipped to the window.
func (m playModel) treeView() string {
	g := m.s.Graph()
	ids := m.s.VisibleIDs()
	rows := max(m.height-playLogSize-10, 3)
	if len(ids) > rows {
		ids = ids[len(ids)-rows:]
	}

	var b strings.Builder
	for _, id := range ids {
		n, ok := g.Primary(id)
		if !ok {
			continue
		}
		line := strings.Repeat("  ", n.Depth) + "• " + n.Label()
		if id == m.last {
			b.WriteString(treeNewStyle.Render(line))
		} else {
			b.WriteString(treeLineStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// overlayView tabulates placed derived nodes.
func (m playModel) overlayView() string {
	nodes := m.s.Cache().Nodes()
	rows := max(m.height-playLogSize-12, 3)
	if len(nodes) > rows {
		nodes = nodes[len(nodes)-rows:]
	}

	data := make([][]string, 0, len(nodes))
	for _, p := range nodes {
		mark := ""
		if p.Fallback {
			mark = "~"
		}
		data = append(data, []string{
			p.Node.Label(),
			string(p.Node.Category.Effective()),
			fmt.Sprintf("%.0f,%.0f", p.Position.X, p.Position.Y),
			mark,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Inference", "Category", "Position", "").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < len(nodes) && nodes[row].ID() == m.last {
				return treeNewStyle
			}
			if col == 1 && row < len(nodes) && nodes[row].Node.Category.Effective() == graph.CategoryAction {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

func (m playModel) footer() string {
	p := m.s.Progress()

	status := m.s.Phase().String()
	switch {
	case m.done:
		status = StyleSuccess.Render("done")
	case m.paused:
		status = StyleWarning.Render("paused")
	}

	return fmt.Sprintf("%s %s  %s  %s  %s",
		m.bar.ViewAs(p.Fraction()),
		StyleNumber.Render(fmt.Sprintf("%3.0f%%", p.Fraction()*100)),
		StyleDim.Render(fmt.Sprintf("tree %d/%d  overlay %d/%d  edges %d",
			p.Revealed, p.Primary, p.Placed, p.Derived, m.s.Cache().EdgeCount())),
		StyleDim.Render(fmt.Sprintf("x%g", m.speed)),
		status,
	)
}
