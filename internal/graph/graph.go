// Package graph holds the per-applicant knowledge graph: one Applicant root,
// the submitted documents, and the deduplicated facts they assert.
//
// Nodes live in an arena and are addressed by NodeID. Facts are indexed by
// their content key so that two documents asserting the same value share a
// node; edges reference arena indices only.
package graph

import (
	"github.com/verity/verity/internal/model"
)

// NodeID indexes the node arena
type NodeID int

// ApplicantID is the root node of every graph
const ApplicantID NodeID = 0

// Edge labels
const (
	RelHasDocument       = "has_document"
	RelIdentifiedAs      = "identified_as"
	RelIssuedBy          = "issued_by"
	RelHasValidityPeriod = "has_validity_period"
	RelHasFundingPeriod  = "has_funding_period"
)

// Node is one arena entry. Document is set for KindDocument, Fact for fact kinds.
type Node struct {
	ID       NodeID
	Kind     Kind
	Document *model.Document
	Fact     *Fact
}

// Edge is a directed, labeled relation. Field is the name of the field the
// source asserted, which can differ from Fact.Field after a dedup collision.
type Edge struct {
	From  NodeID
	To    NodeID
	Label string
	Field string
}

// Assertion is a fact as seen from one document
type Assertion struct {
	Field string
	Fact  *Fact
}

// Graph is built once per run by Build and read by the rule engine
type Graph struct {
	nodes []Node
	edges []Edge
	index map[FactKey]NodeID
	out   map[NodeID][]int
	seen  map[Edge]struct{}
}

func newGraph() *Graph {
	g := &Graph{
		index: make(map[FactKey]NodeID),
		out:   make(map[NodeID][]int),
		seen:  make(map[Edge]struct{}),
	}
	g.nodes = append(g.nodes, Node{ID: ApplicantID, Kind: KindApplicant})
	return g
}

func (g *Graph) addDocument(doc model.Document) NodeID {
	id := NodeID(len(g.nodes))
	d := doc
	g.nodes = append(g.nodes, Node{ID: id, Kind: KindDocument, Document: &d})
	g.addEdge(ApplicantID, id, RelHasDocument, "")
	return id
}

// intern returns the node for f, creating it when its key is new.
// On a collision the first-seen fact is kept.
func (g *Graph) intern(f Fact) NodeID {
	key := f.Key()
	if id, ok := g.index[key]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	fact := f
	g.nodes = append(g.nodes, Node{ID: id, Kind: f.Kind, Fact: &fact})
	g.index[key] = id
	return id
}

// addEdge ignores exact duplicates, mirroring a simple directed graph
func (g *Graph) addEdge(from, to NodeID, label, field string) {
	e := Edge{From: from, To: to, Label: label, Field: field}
	if _, dup := g.seen[e]; dup {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.out[from] = append(g.out[from], len(g.edges)-1)
}

// Node returns the node with the given id
func (g *Graph) Node(id NodeID) Node {
	return g.nodes[id]
}

// Nodes returns all nodes in creation order
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Edges returns all edges in creation order
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Stats reports node and edge counts
func (g *Graph) Stats() model.GraphStats {
	return model.GraphStats{Nodes: len(g.nodes), Edges: len(g.edges)}
}

// Lookup finds a fact node by content key
func (g *Graph) Lookup(key FactKey) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// Documents returns the document nodes in creation order
func (g *Graph) Documents() []Node {
	var docs []Node
	for _, i := range g.out[ApplicantID] {
		e := g.edges[i]
		if e.Label == RelHasDocument {
			docs = append(docs, g.nodes[e.To])
		}
	}
	return docs
}

// DocumentsByCategory partitions the documents by category
func (g *Graph) DocumentsByCategory() map[model.Category][]Node {
	parts := make(map[model.Category][]Node)
	for _, d := range g.Documents() {
		parts[d.Document.Category] = append(parts[d.Document.Category], d)
	}
	return parts
}

// Facts returns the facts a node points at, keyed by the asserting field
func (g *Graph) Facts(id NodeID) []Assertion {
	var facts []Assertion
	for _, i := range g.out[id] {
		e := g.edges[i]
		n := g.nodes[e.To]
		if n.Fact == nil {
			continue
		}
		facts = append(facts, Assertion{Field: e.Field, Fact: n.Fact})
	}
	return facts
}

// Identities returns the name facts linked to the applicant
func (g *Graph) Identities() []*Fact {
	var names []*Fact
	for _, i := range g.out[ApplicantID] {
		e := g.edges[i]
		if e.Label == RelIdentifiedAs {
			names = append(names, g.nodes[e.To].Fact)
		}
	}
	return names
}

// Incoming counts edges pointing at id
func (g *Graph) Incoming(id NodeID) int {
	n := 0
	for _, e := range g.edges {
		if e.To == id {
			n++
		}
	}
	return n
}
