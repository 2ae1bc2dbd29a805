package hierarchy

import (
	"bytes"
	"encoding/json"

	"github.com/salmonumbrella/csvnotes/internal/table"
)

// MetadataKey is the leaf key carrying source information.
const MetadataKey = "_metadata"

// LeafMeta records where a leaf came from.
type LeafMeta struct {
	SourceRow     int    `json:"sourceRow"`
	StructurePath string `json:"structurePath"`
}

// Leaf holds one row's data columns in column order.
type Leaf struct {
	Columns []string
	Values  map[string]table.Value
	Meta    LeafMeta
}

// MarshalJSON writes data columns in column order followed by _metadata.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, col := range l.Columns {
		if col == MetadataKey {
			continue
		}
		if err := writeKey(&buf, col); err != nil {
			return nil, err
		}
		v, err := l.Values[col].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
		buf.WriteByte(',')
	}
	if err := writeKey(&buf, MetadataKey); err != nil {
		return nil, err
	}
	meta, err := marshalNoEscape(l.Meta)
	if err != nil {
		return nil, err
	}
	buf.Write(meta)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Node is one nesting level. Keys keep first-insertion order; each key holds
// either a child node or, at the last level, one or more leaves.
type Node struct {
	keys    []string
	entries map[string]*entry
}

type entry struct {
	child  *Node
	leaves []*Leaf
}

func newNode() *Node {
	return &Node{entries: make(map[string]*entry)}
}

// Keys returns the node's keys in insertion order.
func (n *Node) Keys() []string {
	return append([]string(nil), n.keys...)
}

// Len is the number of keys at this level.
func (n *Node) Len() int { return len(n.keys) }

// Child returns the interior node under key.
func (n *Node) Child(key string) (*Node, bool) {
	e, ok := n.entries[key]
	if !ok || e.child == nil {
		return nil, false
	}
	return e.child, true
}

// Leaves returns the leaves stored under key. With the overwrite policy
// there is at most one.
func (n *Node) Leaves(key string) []*Leaf {
	e, ok := n.entries[key]
	if !ok {
		return nil
	}
	return e.leaves
}

func (n *Node) childOrCreate(key string) *Node {
	if e, ok := n.entries[key]; ok {
		if e.child == nil {
			e.child = newNode()
		}
		return e.child
	}
	child := newNode()
	n.keys = append(n.keys, key)
	n.entries[key] = &entry{child: child}
	return child
}

// putLeaf stores leaf under key and returns the number of leaves that were
// already there.
func (n *Node) putLeaf(key string, leaf *Leaf, collision Collision) int {
	e, ok := n.entries[key]
	if !ok {
		n.keys = append(n.keys, key)
		n.entries[key] = &entry{leaves: []*Leaf{leaf}}
		return 0
	}
	prior := len(e.leaves)
	if collision == CollisionMerge {
		e.leaves = append(e.leaves, leaf)
	} else {
		e.leaves = []*Leaf{leaf}
	}
	return prior
}

// LeafCount counts leaves across the whole subtree.
func (n *Node) LeafCount() int {
	count := 0
	for _, key := range n.keys {
		e := n.entries[key]
		if e.child != nil {
			count += e.child.LeafCount()
			continue
		}
		count += len(e.leaves)
	}
	return count
}

// Walk visits every leaf with its key path, in insertion order.
func (n *Node) Walk(fn func(path []string, leaf *Leaf)) {
	n.walk(nil, fn)
}

func (n *Node) walk(prefix []string, fn func([]string, *Leaf)) {
	for _, key := range n.keys {
		path := append(append([]string(nil), prefix...), key)
		e := n.entries[key]
		if e.child != nil {
			e.child.walk(path, fn)
			continue
		}
		for _, leaf := range e.leaves {
			fn(path, leaf)
		}
	}
}

// MarshalJSON writes the node as an object in key insertion order. A key
// holding several merged leaves becomes an array.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, key); err != nil {
			return nil, err
		}
		var (
			val []byte
			err error
		)
		e := n.entries[key]
		switch {
		case e.child != nil:
			val, err = e.child.MarshalJSON()
		case len(e.leaves) == 1:
			val, err = e.leaves[0].MarshalJSON()
		default:
			val, err = marshalLeaves(e.leaves)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalLeaves(leaves []*Leaf) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, leaf := range leaves {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := leaf.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := marshalNoEscape(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// marshalNoEscape encodes v without HTML escaping so keys such as "R&D"
// survive verbatim.
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
