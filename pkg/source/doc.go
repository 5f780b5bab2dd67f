// Package source loads a graph from Neo4j.
//
// The database holds two labels. DataNode vertices form the primary
// hierarchy through CONTAINS relationships. Inference vertices are derived
// nodes: SUPPORTS edges come in from data nodes, LEADS_TO edges connect
// inferences to each other.
//
// [Client] runs the two read queries and returns plain rows. [BuildGraph]
// turns the rows into a [graph.Graph]: every data node that nobody contains
// hangs under a synthetic root, depths are assigned breadth first, and
// malformed inferences are skipped with a warning.
package source
