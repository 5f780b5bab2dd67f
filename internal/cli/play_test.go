package cli

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/reveal"
)

func playFixture(t *testing.T) playModel {
	t.Helper()
	g := graph.New()
	_ = g.AddPrimary(graph.PrimaryNode{ID: "root", Title: "Root"})
	_ = g.AddPrimary(graph.PrimaryNode{ID: "a", ParentID: "root", Depth: 1, Title: "Alpha"})
	_ = g.AddDerived(graph.DerivedNode{ID: "x", Title: "Inferred", Sources: []graph.Reference{graph.Primary("a")}})
	layout := reveal.Positions{"root": {X: 0, Y: 0}, "a": {X: 0, Y: 80}}
	s := reveal.New(g, layout, nil, reveal.Options{Logger: log.New(io.Discard)})
	return newPlayModel(s, 1)
}

func send(m playModel, msg tea.Msg) (playModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(playModel), cmd
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayModelRunsToCompletion(t *testing.T) {
	m := playFixture(t)
	for i := 0; i < 10 && !m.done; i++ {
		var cmd tea.Cmd
		m, cmd = send(m, playTickMsg{gen: m.gen})
		if !m.done && cmd == nil {
			t.Fatalf("tick %d returned no follow-up", i)
		}
	}
	if !m.done {
		t.Fatal("run did not complete")
	}
	if p := m.s.Progress(); p.Revealed != 2 || p.Placed != 1 {
		t.Errorf("progress = %+v", p)
	}
	view := m.View()
	for _, want := range []string{"Root", "Alpha", "Inferred", "done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestPlayModelPauseIgnoresStaleTicks(t *testing.T) {
	m := playFixture(t)
	stale := playTickMsg{gen: m.gen}

	m, _ = send(m, key(" "))
	if !m.paused {
		t.Fatal("space did not pause")
	}
	m, cmd := send(m, stale)
	if cmd != nil || m.s.Ticks() != 0 {
		t.Errorf("paused model ticked: ticks = %d", m.s.Ticks())
	}

	m, cmd = send(m, key(" "))
	if m.paused || cmd == nil {
		t.Fatal("resume did not schedule a tick")
	}
	m, _ = send(m, stale)
	if m.s.Ticks() != 0 {
		t.Error("stale tick from before pause was applied")
	}
}

func TestPlayModelRestart(t *testing.T) {
	m := playFixture(t)
	m, _ = send(m, playTickMsg{gen: m.gen})
	first := m.s.RunID()

	m, cmd := send(m, key("r"))
	if cmd == nil {
		t.Fatal("restart did not schedule a tick")
	}
	if m.s.RunID() == first {
		t.Error("restart kept the run id")
	}
	if len(m.s.VisibleIDs()) != 0 || len(m.log) != 0 {
		t.Error("restart did not clear state")
	}
}

func TestPlayModelSpeed(t *testing.T) {
	m := playFixture(t)
	for range 10 {
		m, _ = send(m, key("+"))
	}
	if m.speed != maxSpeed {
		t.Errorf("speed = %v, want %v", m.speed, maxSpeed)
	}
	for range 20 {
		m, _ = send(m, key("-"))
	}
	if m.speed != minSpeed {
		t.Errorf("speed = %v, want %v", m.speed, minSpeed)
	}
}

func TestPlayModelQuit(t *testing.T) {
	m := playFixture(t)
	_, cmd := send(m, key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
