package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/reveal"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

type published struct {
	topic string
	event RunEvent
}

type fakePublisher struct {
	got []published
	err error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, published{topic, event.(RunEvent)})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fixedRun string

func (r fixedRun) RunID() string { return string(r) }

func TestSinkTopics(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(context.Background(), pub, log.New(io.Discard))
	s.Attach(fixedRun("run-1"))

	s.Reveal("root")
	s.PlaceDerived("ni", graph.Position{X: 1, Y: 2})
	s.CreateEdge("root", "ni")
	s.RunComplete()

	wantTopics := []string{TopicReveal, TopicPlace, TopicEdge, TopicComplete}
	if len(pub.got) != len(wantTopics) {
		t.Fatalf("published %d events, want %d", len(pub.got), len(wantTopics))
	}
	for i, p := range pub.got {
		if p.topic != wantTopics[i] {
			t.Errorf("event %d topic = %q, want %q", i, p.topic, wantTopics[i])
		}
		if p.event.Seq != i || p.event.RunID != "run-1" {
			t.Errorf("event %d = %+v", i, p.event)
		}
	}
	if pos := pub.got[1].event.Position; pos == nil || *pos != (graph.Position{X: 1, Y: 2}) {
		t.Errorf("place position = %v", pos)
	}
	if e := pub.got[2].event; e.Source != "root" || e.Target != "ni" {
		t.Errorf("edge = %+v", e)
	}
}

func TestSinkPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("down")}
	s := NewSink(context.Background(), pub, log.New(io.Discard))
	s.Reveal("a")
	s.Reveal("b")
	if s.Errors() != 2 {
		t.Errorf("Errors() = %d, want 2", s.Errors())
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), TopicReveal, RunEvent{}); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestNATSRoundTrip(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	g := graph.New()
	_ = g.AddPrimary(graph.PrimaryNode{ID: "root"})
	_ = g.AddDerived(graph.DerivedNode{ID: "ni", Sources: []graph.Reference{graph.Primary("root")}})

	sink := NewSink(context.Background(), pub, log.New(io.Discard))
	s := reveal.New(g, reveal.Positions{"root": {}}, sink, reveal.Options{Logger: log.New(io.Discard)})
	sink.Attach(s)
	if _, done := reveal.Drain(s, 100); !done {
		t.Fatal("run did not complete")
	}
	if err := pub.Flush(); err != nil {
		t.Fatal(err)
	}

	// reveal root, place ni, edge root->ni, complete
	var got []RunEvent
	timeout := time.After(5 * time.Second)
	for len(got) < 4 {
		select {
		case data := <-ch:
			var e RunEvent
			if err := json.Unmarshal(data, &e); err != nil {
				t.Fatalf("bad payload %s: %v", data, err)
			}
			got = append(got, e)
		case <-timeout:
			t.Fatalf("received %d events, want 4", len(got))
		}
	}
	if got[0].NodeID != "root" || got[0].RunID != s.RunID() {
		t.Errorf("first event = %+v", got[0])
	}
	if got[3].Seq != 3 {
		t.Errorf("last seq = %d, want 3", got[3].Seq)
	}
}

func TestNATSSubscriberDoubleCancel(t *testing.T) {
	url := startTestNATS(t)
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	ch, cancel, err := sub.Subscribe("growtree.node.*")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	if _, err := NewNATSPublisher("nats://127.0.0.1:1"); err == nil {
		t.Error("NewNATSPublisher() connected to a closed port")
	}
}
