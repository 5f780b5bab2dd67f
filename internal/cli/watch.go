package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/internal/config"
	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/events"
)

var (
	watchRunStyle  = lipgloss.NewStyle().Foreground(colorGray)
	watchKindStyle = map[string]lipgloss.Style{
		events.TopicReveal:   lipgloss.NewStyle().Foreground(colorGreen),
		events.TopicPlace:    lipgloss.NewStyle().Foreground(colorCyan),
		events.TopicEdge:     lipgloss.NewStyle().Foreground(colorDim),
		events.TopicComplete: lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
	}
)

// watchCommand creates the watch command for following published runs.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		natsURL string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print run events published to NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			if natsURL == "" {
				natsURL = c.cfg.Server.NATSURL
			}
			if natsURL == "" {
				return gerrors.New(gerrors.ErrCodeInvalidConfig, "no NATS server: pass --nats or set %s", config.EnvNATSURL)
			}

			sub, err := events.NewNATSSubscriber(natsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			msgs, cancel, err := sub.Subscribe(events.TopicAll)
			if err != nil {
				return err
			}
			defer cancel()
			printInfo("Watching %s on %s", events.TopicAll, natsURL)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case data, ok := <-msgs:
					if !ok {
						return nil
					}
					if err := printEvent(out, data, asJSON); err != nil {
						c.Logger.Warn("Skipping malformed event", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS server URL (default: config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON events")
	return cmd
}

// printEvent writes one event as a styled line, or verbatim with raw.
func printEvent(w io.Writer, data []byte, raw bool) error {
	var e events.RunEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	if raw {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	}

	topic, detail := describeEvent(e)
	style, ok := watchKindStyle[topic]
	if !ok {
		style = StyleValue
	}
	run := e.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	_, err := fmt.Fprintf(w, "%s %4d %s %s\n",
		watchRunStyle.Render(run), e.Seq, style.Render(fmt.Sprintf("%-8s", topicLabel(topic))), detail)
	return err
}

// describeEvent infers the event kind from which fields are set.
func describeEvent(e events.RunEvent) (topic, detail string) {
	switch {
	case e.Source != "":
		return events.TopicEdge, e.Source + " " + iconArrow + " " + e.Target
	case e.Position != nil:
		return events.TopicPlace, fmt.Sprintf("%s (%.0f, %.0f)", e.NodeID, e.Position.X, e.Position.Y)
	case e.NodeID != "":
		return events.TopicReveal, e.NodeID
	default:
		return events.TopicComplete, ""
	}
}

func topicLabel(topic string) string {
	switch topic {
	case events.TopicReveal:
		return "reveal"
	case events.TopicPlace:
		return "place"
	case events.TopicEdge:
		return "edge"
	case events.TopicComplete:
		return "complete"
	}
	return topic
}
