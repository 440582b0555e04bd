// Package graph holds the in-memory campaign DAG.
package graph

import (
	"fmt"
	"sync"

	"github.com/agenthands/funnelgraph/internal/core/model"
)

// Store is append-only for nodes and edges; nodes are mutated in place through
// Update. Each call is an independent keyed operation: there are no cross-node
// transactions, and concurrent updates to the same node resolve last-write-wins.
type Store struct {
	mu     sync.RWMutex
	nodes  map[string]*model.Node
	order  []string
	edges  []model.Edge
	rootID string
}

func NewStore() *Store {
	return &Store{nodes: make(map[string]*model.Node)}
}

// Add appends node and, when parentID is set, the parent → node edge.
func (s *Store) Add(node model.Node, parentID string) error {
	return s.AddAll([]model.Node{node}, parentID)
}

// AddAll appends sibling nodes under parentID as one batch: either every node
// and edge is stored or none is.
func (s *Store) AddAll(nodes []model.Node, parentID string) error {
	batch := make([]model.Node, 0, len(nodes))
	for _, node := range nodes {
		node.ParentID = parentID
		if err := node.Validate(); err != nil {
			return err
		}
		batch = append(batch, node.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		if _, ok := s.nodes[parentID]; !ok {
			return fmt.Errorf("parent %s: %w", parentID, model.ErrNotFound)
		}
	}
	seen := make(map[string]bool, len(batch))
	rootID := s.rootID
	for _, n := range batch {
		if _, exists := s.nodes[n.ID]; exists || seen[n.ID] {
			return fmt.Errorf("%w: %s", model.ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if n.Type == model.NodeRoot {
			if rootID != "" {
				return fmt.Errorf("%w: %s", model.ErrRootExists, rootID)
			}
			rootID = n.ID
		}
	}

	for i := range batch {
		n := &batch[i]
		s.nodes[n.ID] = n
		s.order = append(s.order, n.ID)
		if parentID != "" {
			s.edges = append(s.edges, model.NewEdge(parentID, n.ID))
		}
	}
	s.rootID = rootID
	return nil
}

// Update applies mutate to the stored node. Identity fields (id, type, parent)
// cannot be changed through it.
func (s *Store) Update(id string, mutate func(n *model.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	next := n.Clone()
	mutate(&next)
	next.ID, next.Type, next.ParentID = n.ID, n.Type, n.ParentID
	*n = next
	return nil
}

func (s *Store) Get(id string) (model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return model.Node{}, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	return n.Clone(), nil
}

func (s *Store) Root() (model.Node, error) {
	s.mu.RLock()
	id := s.rootID
	s.mu.RUnlock()
	if id == "" {
		return model.Node{}, fmt.Errorf("root: %w", model.ErrNotFound)
	}
	return s.Get(id)
}

// Nodes returns every node in creation order.
func (s *Store) Nodes() []model.Node {
	return s.NodesWhere(func(model.Node) bool { return true })
}

func (s *Store) NodesWhere(keep func(model.Node) bool) []model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Node
	for _, id := range s.order {
		n := s.nodes[id]
		if keep(*n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (s *Store) Edges() []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Edge(nil), s.edges...)
}

// EdgesWhere returns edges whose endpoints both satisfy keep.
func (s *Store) EdgesWhere(keep func(model.Node) bool) []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Edge
	for _, e := range s.edges {
		src, okS := s.nodes[e.Source]
		dst, okT := s.nodes[e.Target]
		if okS && okT && keep(*src) && keep(*dst) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Children(id string) ([]model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	var out []model.Node
	for _, e := range s.edges {
		if e.Source == id {
			out = append(out, s.nodes[e.Target].Clone())
		}
	}
	return out, nil
}

// Ancestors walks parent links from the node upward, nearest first.
func (s *Store) Ancestors(id string) ([]model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	var out []model.Node
	seen := map[string]bool{id: true}
	for p := n.ParentID; p != "" && !seen[p]; {
		parent, ok := s.nodes[p]
		if !ok {
			break
		}
		seen[p] = true
		out = append(out, parent.Clone())
		p = parent.ParentID
	}
	return out, nil
}

// LabNodes is the Testing stage plus ghosts kept for audit.
func (s *Store) LabNodes() []model.Node {
	return s.NodesWhere(func(n model.Node) bool {
		return n.Stage == model.StageTesting || n.IsGhost
	})
}

func (s *Store) VaultNodes() []model.Node {
	return s.NodesWhere(func(n model.Node) bool { return n.Stage == model.StageScaling })
}

// LabEdges keeps edges whose endpoints are both active Testing nodes.
func (s *Store) LabEdges() []model.Edge {
	return s.EdgesWhere(model.Node.Active)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
