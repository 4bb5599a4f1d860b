package graph

import "github.com/RoaringBitmap/roaring"

// NodeSet is a set of node identities backed by a roaring bitmap over the
// dense ids a Tree assigns.
type NodeSet struct {
	bm *roaring.Bitmap
}

func NewNodeSet() *NodeSet {
	return &NodeSet{bm: roaring.New()}
}

// Add inserts n and reports whether it was not already present.
func (s *NodeSet) Add(n *Node) bool {
	return s.bm.CheckedAdd(n.ID)
}

func (s *NodeSet) Contains(n *Node) bool {
	return s.bm.Contains(n.ID)
}

func (s *NodeSet) Len() int {
	return int(s.bm.GetCardinality())
}

// IDs returns the member ids in ascending order.
func (s *NodeSet) IDs() []uint32 {
	return s.bm.ToArray()
}
