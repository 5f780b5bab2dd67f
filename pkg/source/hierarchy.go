package source

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/growtree/pkg/graph"
)

// DefaultRootID is the id of the synthetic forest root.
const DefaultRootID = "root"

// BuildOptions controls [BuildGraph].
type BuildOptions struct {
	RootID    string      // Synthetic root id (default "root")
	RootTitle string      // Synthetic root title (default "Input")
	Logger    *log.Logger // Receives skip warnings (default log.Default())
}

// BuildGraph assembles a graph from loaded rows.
//
// A data node claimed as a child by several parents keeps the first claim in
// row order. Nodes caught in a CONTAINS cycle are attached to the root.
// Inferences without id, title or sources, with an unknown type, or with a
// duplicate id are skipped.
func BuildGraph(nodes []DataNodeRow, inferences []InferenceRow, opts BuildOptions) (*graph.Graph, error) {
	if opts.RootID == "" {
		opts.RootID = DefaultRootID
	}
	if opts.RootTitle == "" {
		opts.RootTitle = "Input"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	byID := make(map[string]DataNodeRow, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			logger.Warn("skipping data node without id")
			continue
		}
		if n.ID == opts.RootID {
			return nil, fmt.Errorf("data node %q collides with the synthetic root: %w", n.ID, graph.ErrDuplicateNodeID)
		}
		if _, dup := byID[n.ID]; dup {
			logger.Warn("skipping duplicate data node", "id", n.ID)
			continue
		}
		byID[n.ID] = n
	}

	parent := make(map[string]string)
	children := make(map[string][]string)
	for _, n := range nodes {
		if _, ok := byID[n.ID]; !ok {
			continue
		}
		for _, c := range n.Children {
			if _, known := byID[c]; !known || c == n.ID {
				continue
			}
			if _, claimed := parent[c]; claimed {
				continue
			}
			parent[c] = n.ID
			children[n.ID] = append(children[n.ID], c)
		}
	}

	var tops []string
	for _, n := range nodes {
		if _, ok := byID[n.ID]; !ok || slices.Contains(tops, n.ID) {
			continue
		}
		if _, hasParent := parent[n.ID]; !hasParent {
			tops = append(tops, n.ID)
		}
	}
	children[opts.RootID] = tops

	g := graph.New()
	if err := g.AddPrimary(graph.PrimaryNode{ID: opts.RootID, Title: opts.RootTitle}); err != nil {
		return nil, err
	}

	depth := map[string]int{opts.RootID: 0}
	queue := []string{opts.RootID}
	visit := func() error {
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, c := range children[id] {
				if _, seen := depth[c]; seen {
					continue
				}
				depth[c] = depth[id] + 1
				row := byID[c]
				err := g.AddPrimary(graph.PrimaryNode{
					ID: c, ParentID: id, Depth: depth[c], Title: row.Title, Content: row.Props,
				})
				if err != nil {
					return err
				}
				queue = append(queue, c)
			}
		}
		return nil
	}
	if err := visit(); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if _, ok := byID[n.ID]; !ok {
			continue
		}
		if _, seen := depth[n.ID]; !seen {
			logger.Warn("data node is in a CONTAINS cycle, attaching to root", "id", n.ID)
			children[opts.RootID] = []string{n.ID}
			queue = append(queue, opts.RootID)
			delete(parent, n.ID)
			if err := visit(); err != nil {
				return nil, err
			}
		}
	}

	for _, inf := range inferences {
		n, ok := derivedFromRow(inf, logger)
		if !ok {
			continue
		}
		if err := g.AddDerived(n); err != nil {
			logger.Warn("skipping inference", "id", n.ID, "err", err)
		}
	}
	return g, nil
}

func derivedFromRow(inf InferenceRow, logger *log.Logger) (graph.DerivedNode, bool) {
	if inf.ID == "" || inf.Title == "" || len(inf.DataSources)+len(inf.InferenceSources) == 0 {
		logger.Warn("skipping invalid inference", "id", inf.ID, "title", inf.Title)
		return graph.DerivedNode{}, false
	}
	cat, err := graph.ParseCategory(inf.Type)
	if err != nil {
		logger.Warn("skipping inference", "id", inf.ID, "err", err)
		return graph.DerivedNode{}, false
	}
	n := graph.DerivedNode{
		ID:       inf.ID,
		Title:    inf.Title,
		Category: cat,
		Targets:  slices.Clone(inf.Targets),
		Content:  inf.Props,
	}
	for _, s := range inf.DataSources {
		n.Sources = append(n.Sources, graph.Primary(s))
	}
	for _, s := range inf.InferenceSources {
		n.Sources = append(n.Sources, graph.Derived(s))
	}
	return n, true
}
