package xdx

import "github.com/mkfoss/dbase3/pkg/dbferr"

// KeyRecno is one (key, record number) pair, used by Reindex.
type KeyRecno struct {
	Key   []byte
	Recno uint32
}

// search performs a binary search of n's entries for key, returning the
// insertion index (first entry whose key is >= key under the tree's
// comparator) and whether that entry is an exact match.
func (t *Tree) search(n *node, key []byte) (int, bool) {
	lo, hi := 0, len(n.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.compare(n.entries[mid].key, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.entries) && t.compare(n.entries[lo].key, key) == 0 {
		return lo, true
	}
	return lo, false
}

// descend walks from the root to the leaf that should contain key,
// recording, for every internal node visited, the position used to
// descend into its child (needed to propagate a split back up). A split
// moves the median up rather than copying it, so an equal key may live
// only in an internal node; internalMatch reports whether the descent
// passed one (spec.md §4.2 "detect equality along the descent").
func (t *Tree) descend(key []byte) (leaf *node, path []*node, pathPos []int, internalMatch bool, err error) {
	cur, err := t.getNode(t.hdr.RootOffset)
	if err != nil {
		return nil, nil, nil, false, err
	}
	for !cur.leaf {
		pos, exact := t.search(cur, key)
		if exact {
			internalMatch = true
		}
		path = append(path, cur)
		pathPos = append(pathPos, pos)
		var childOff uint32
		if pos == cur.keyCount() {
			childOff = cur.right
		} else {
			// on an exact internal match, any further equal keys sit in
			// the left subtree; the promoted entry itself is resolved by
			// the callers via internalMatch.
			childOff = cur.entries[pos].child
		}
		cur, err = t.getNode(childOff)
		if err != nil {
			return nil, nil, nil, false, err
		}
	}
	return cur, path, pathPos, internalMatch, nil
}

// Insert adds (key, recno) to the tree. key must already be normalized to
// the index's key length. On a unique index, a second insertion of an
// equal key fails with DuplicateKey (spec.md §4.2).
func (t *Tree) Insert(key []byte, recno uint32) error {
	leaf, path, pathPos, internalMatch, err := t.descend(key)
	if err != nil {
		return err
	}
	pos, exact := t.search(leaf, key)
	if (exact || internalMatch) && t.hdr.Unique {
		return ierr(dbferr.DuplicateKey, "duplicate key")
	}
	for exact && pos < len(leaf.entries) && t.compare(leaf.entries[pos].key, key) == 0 && leaf.entries[pos].recno < recno {
		pos++
	}
	insertEntry(leaf, pos, entry{key: append([]byte(nil), key...), recno: recno})
	leaf.dirty = true
	if err := t.writeNode(leaf); err != nil {
		return err
	}

	return t.propagateSplit(leaf, path, pathPos)
}

func insertEntry(n *node, pos int, e entry) {
	n.entries = append(n.entries, entry{})
	copy(n.entries[pos+1:], n.entries[pos:])
	n.entries[pos] = e
}

func removeEntryAt(n *node, pos int) {
	copy(n.entries[pos:], n.entries[pos+1:])
	n.entries = n.entries[:len(n.entries)-1]
}

// propagateSplit splits child if it has overflowed to Order entries,
// promoting the median upward, and repeats up the recorded path; it
// creates a new root when the split reaches the top (spec.md §4.2 step 6).
func (t *Tree) propagateSplit(child *node, path []*node, pathPos []int) error {
	for child.keyCount() >= int(t.hdr.Order) {
		left, right, promoteKey, promoteRecno, err := t.splitNode(child)
		if err != nil {
			return err
		}
		if len(path) == 0 {
			return t.newRoot(left, right, promoteKey, promoteRecno)
		}
		parent := path[len(path)-1]
		pos := pathPos[len(pathPos)-1]
		path, pathPos = path[:len(path)-1], pathPos[:len(pathPos)-1]

		insertInternal(parent, pos, promoteKey, promoteRecno, left.offset, right.offset)
		parent.dirty = true
		if err := t.writeNode(parent); err != nil {
			return err
		}
		child = parent
	}
	return nil
}

func insertInternal(parent *node, pos int, key []byte, recno uint32, leftOff, rightOff uint32) {
	insertEntry(parent, pos, entry{key: key, recno: recno, child: leftOff})
	if pos+1 < len(parent.entries) {
		parent.entries[pos+1].child = rightOff
	} else {
		parent.right = rightOff
	}
}

// splitNode implements the median split described in spec.md §4.2: the
// right sibling takes entries (mid+1..end), the left node shrinks to mid
// entries, and (for internal nodes) the former entries[mid].child becomes
// the left node's new right pointer while the right sibling inherits the
// original right pointer.
func (t *Tree) splitNode(n *node) (left, right *node, promoteKey []byte, promoteRecno uint32, err error) {
	mid := n.keyCount() / 2
	promote := n.entries[mid]

	right = t.allocateNode(n.leaf)
	right.entries = append([]entry(nil), n.entries[mid+1:]...)
	right.parent = n.parent
	if !n.leaf {
		right.right = n.right
	}

	n.entries = n.entries[:mid]
	if !n.leaf {
		n.right = promote.child
	}
	n.dirty = true

	if !n.leaf {
		if err := t.reparentChildren(right); err != nil {
			return nil, nil, nil, 0, err
		}
	}

	if err := t.writeNode(n); err != nil {
		return nil, nil, nil, 0, err
	}
	if err := t.writeNode(right); err != nil {
		return nil, nil, nil, 0, err
	}
	return n, right, promote.key, promote.recno, nil
}

func (t *Tree) reparentChildren(n *node) error {
	for i := range n.entries {
		c, err := t.getNode(n.entries[i].child)
		if err != nil {
			return err
		}
		c.parent = n.offset
		c.dirty = true
		if err := t.writeNode(c); err != nil {
			return err
		}
	}
	if n.right != 0 {
		c, err := t.getNode(n.right)
		if err != nil {
			return err
		}
		c.parent = n.offset
		c.dirty = true
		if err := t.writeNode(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) newRoot(left, right *node, key []byte, recno uint32) error {
	root := t.allocateNode(false)
	root.entries = []entry{{key: key, recno: recno, child: left.offset}}
	root.right = right.offset
	root.parent = 0

	left.parent = root.offset
	right.parent = root.offset

	t.hdr.RootOffset = root.offset
	t.root = root

	if err := t.writeNode(left); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}
	if err := t.writeNode(root); err != nil {
		return err
	}
	return t.writeHeader()
}

// Delete removes the entry matching both key and recno (duplicate keys
// with different record numbers are distinct entries, spec.md §4.2).
// Rebalancing is not performed; the tree remains search-correct. An
// entry promoted into an internal node by a split is replaced with its
// in-order successor pulled up from a leaf, keeping the node ordered
// without touching child pointers.
func (t *Tree) Delete(key []byte, recno uint32) error {
	t.curValid = false
	cur, err := t.getNode(t.hdr.RootOffset)
	if err != nil {
		return err
	}
	for {
		pos, exact := t.search(cur, key)
		if cur.leaf {
			if !exact {
				return ierr(dbferr.InvalidRecord, "key not found")
			}
			for pos < len(cur.entries) && t.compare(cur.entries[pos].key, key) == 0 {
				if cur.entries[pos].recno == recno {
					removeEntryAt(cur, pos)
					cur.dirty = true
					return t.writeNode(cur)
				}
				pos++
			}
			return ierr(dbferr.InvalidRecord, "key/recno pair not found")
		}
		if exact {
			for i := pos; i < len(cur.entries) && t.compare(cur.entries[i].key, key) == 0; i++ {
				if cur.entries[i].recno == recno {
					return t.deleteFromInternal(cur, i)
				}
			}
		}
		var childOff uint32
		if pos == cur.keyCount() {
			childOff = cur.right
		} else {
			childOff = cur.entries[pos].child
		}
		cur, err = t.getNode(childOff)
		if err != nil {
			return err
		}
	}
}

// deleteFromInternal removes n.entries[i] by overwriting its key/recno
// with the smallest entry of the subtree to its right (or, if that leaf
// has been drained by earlier deletions, the largest of the subtree to
// its left), then deleting that replacement from its leaf. The entry's
// child pointer is untouched, so every descent path stays valid. When
// both adjacent leaves are empty and the entry's left child is an empty
// leaf, the entry is simply dropped; deeper degenerate shapes require a
// rebuild (spec.md §4.2: underfull trees stay search-correct until
// REINDEX).
func (t *Tree) deleteFromInternal(n *node, i int) error {
	var rightSub uint32
	if i+1 < len(n.entries) {
		rightSub = n.entries[i+1].child
	} else {
		rightSub = n.right
	}
	succLeaf, err := t.edgeLeaf(rightSub, true)
	if err != nil {
		return err
	}
	if succLeaf.keyCount() > 0 {
		return t.replaceAndRemove(n, i, succLeaf, 0)
	}
	predLeaf, err := t.edgeLeaf(n.entries[i].child, false)
	if err != nil {
		return err
	}
	if predLeaf.keyCount() > 0 {
		return t.replaceAndRemove(n, i, predLeaf, predLeaf.keyCount()-1)
	}
	left, err := t.getNode(n.entries[i].child)
	if err != nil {
		return err
	}
	if left.leaf && left.keyCount() == 0 {
		removeEntryAt(n, i)
		n.dirty = true
		return t.writeNode(n)
	}
	return ierr(dbferr.InvalidIndex, "underfull subtree; REINDEX required")
}

// edgeLeaf descends from off to its leftmost (or rightmost) leaf.
func (t *Tree) edgeLeaf(off uint32, leftmost bool) (*node, error) {
	n, err := t.getNode(off)
	if err != nil {
		return nil, err
	}
	for !n.leaf {
		next := n.right
		if leftmost && n.keyCount() > 0 {
			next = n.entries[0].child
		}
		n, err = t.getNode(next)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (t *Tree) replaceAndRemove(n *node, i int, leaf *node, pos int) error {
	repl := leaf.entries[pos]
	n.entries[i].key = append([]byte(nil), repl.key...)
	n.entries[i].recno = repl.recno
	n.dirty = true
	if err := t.writeNode(n); err != nil {
		return err
	}
	removeEntryAt(leaf, pos)
	leaf.dirty = true
	return t.writeNode(leaf)
}
