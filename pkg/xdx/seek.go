package xdx

import "github.com/mkfoss/dbase3/pkg/dbferr"

// Seek descends to the leaf that should hold key and returns the first
// matching entry. If no exact match exists it returns the in-order
// successor (found=false); when no successor exists it returns an error
// of kind EOF, so SEEK's "not found, parked on next key" and "not found,
// at EOF" cases (spec.md §4.6) can be told apart.
func (t *Tree) Seek(key []byte) (found bool, recno uint32, err error) {
	leaf, path, pathPos, _, err := t.descend(key)
	if err != nil {
		return false, 0, err
	}
	pos, exact := t.search(leaf, key)
	if exact {
		t.setCursor(leaf.offset, pos)
		return true, leaf.entries[pos].recno, nil
	}
	if pos < len(leaf.entries) {
		t.setCursor(leaf.offset, pos)
		return false, leaf.entries[pos].recno, nil
	}
	// key is greater than everything in this leaf; find the in-order
	// successor by climbing parent back-links (spec.md §9 skip(count)).
	// A split moves the median into its parent, so the successor entry
	// may itself be the exact match (spec.md §4.2 "at internal-node
	// equality, the engine may short-circuit to the internal entry").
	succNode, succPos, ok := successorPosition(path, pathPos)
	if !ok {
		t.curValid = false
		return false, 0, ierr(dbferr.EOF, "seek past end of index")
	}
	t.setCursor(succNode.offset, succPos)
	succ := succNode.entries[succPos]
	return t.compare(succ.key, key) == 0, succ.recno, nil
}

func (t *Tree) setCursor(nodeOff uint32, pos int) {
	t.curNode = nodeOff
	t.curPos = pos
	t.curValid = true
}

// successorPosition climbs the recorded descent path, returning the
// node/position holding the next key in order, or ok=false if the
// descent ended in the rightmost leaf of the tree.
func successorPosition(path []*node, pathPos []int) (*node, int, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		parent := path[i]
		pos := pathPos[i]
		if pos < parent.keyCount() {
			return parent, pos, true
		}
	}
	return nil, 0, false
}

// firstInOrder finds the smallest entry in the subtree rooted at off:
// usually the leftmost leaf's first entry, but a leaf drained by deletes
// falls back to the nearest internal entry above it.
func (t *Tree) firstInOrder(off uint32) (*node, int, bool, error) {
	n, err := t.getNode(off)
	if err != nil {
		return nil, 0, false, err
	}
	if n.leaf {
		if n.keyCount() > 0 {
			return n, 0, true, nil
		}
		return nil, 0, false, nil
	}
	if n.keyCount() > 0 {
		if ln, lp, ok, err := t.firstInOrder(n.entries[0].child); err != nil || ok {
			return ln, lp, ok, err
		}
		return n, 0, true, nil
	}
	return t.firstInOrder(n.right)
}

// lastInOrder finds the largest entry in the subtree rooted at off.
func (t *Tree) lastInOrder(off uint32) (*node, int, bool, error) {
	n, err := t.getNode(off)
	if err != nil {
		return nil, 0, false, err
	}
	if n.leaf {
		if n.keyCount() > 0 {
			return n, n.keyCount() - 1, true, nil
		}
		return nil, 0, false, nil
	}
	if rn, rp, ok, err := t.lastInOrder(n.right); err != nil || ok {
		return rn, rp, ok, err
	}
	if n.keyCount() > 0 {
		return n, n.keyCount() - 1, true, nil
	}
	return nil, 0, false, nil
}

// GoTop positions the cursor on the first key in the index.
func (t *Tree) GoTop() (recno uint32, ok bool, err error) {
	n, pos, ok, err := t.firstInOrder(t.hdr.RootOffset)
	if err != nil || !ok {
		t.curValid = false
		return 0, false, err
	}
	t.setCursor(n.offset, pos)
	return n.entries[pos].recno, true, nil
}

// GoBottom positions the cursor on the last key in the index.
func (t *Tree) GoBottom() (recno uint32, ok bool, err error) {
	n, pos, ok, err := t.lastInOrder(t.hdr.RootOffset)
	if err != nil || !ok {
		t.curValid = false
		return 0, false, err
	}
	t.setCursor(n.offset, pos)
	return n.entries[pos].recno, true, nil
}

// pathTo rebuilds the descent path to the node at target, used to
// resolve parent back-links when the cursor needs to cross a subtree
// boundary (Skip). The tree does not retain the path used by a prior
// Seek, so this walks from the root once per cursor crossing.
func (t *Tree) pathTo(target uint32) (path []*node, pathPos []int, err error) {
	cur, err := t.getNode(t.hdr.RootOffset)
	if err != nil {
		return nil, nil, err
	}
	for cur.offset != target {
		if cur.leaf {
			return nil, nil, ierr(dbferr.Internal, "cursor node not reachable from root")
		}
		var pos int
		var next uint32
		found := false
		for i, e := range cur.entries {
			child, err := t.getNode(e.child)
			if err != nil {
				return nil, nil, err
			}
			if child.offset == target || offsetWithin(t, child, target) {
				pos, next, found = i, e.child, true
				break
			}
		}
		if !found {
			pos, next = cur.keyCount(), cur.right
		}
		path = append(path, cur)
		pathPos = append(pathPos, pos)
		cur, err = t.getNode(next)
		if err != nil {
			return nil, nil, err
		}
	}
	return path, pathPos, nil
}

// offsetWithin reports whether target is reachable under the subtree
// rooted at n, used only to pick the correct branch while rebuilding a
// path in pathTo.
func offsetWithin(t *Tree, n *node, target uint32) bool {
	if n.offset == target {
		return true
	}
	if n.leaf {
		return false
	}
	for _, e := range n.entries {
		child, err := t.getNode(e.child)
		if err == nil && offsetWithin(t, child, target) {
			return true
		}
	}
	child, err := t.getNode(n.right)
	return err == nil && offsetWithin(t, child, target)
}

// Skip moves the cursor left or right by count positions in key order,
// visiting internal-node entries in their in-order place between the
// subtrees around them (splits move medians up, so internal entries are
// real keys, not separators). Returns the record number now positioned
// on; ok is false when the movement ran off either end of the index.
func (t *Tree) Skip(count int) (recno uint32, ok bool, err error) {
	if !t.curValid {
		if count >= 0 {
			return t.GoTop()
		}
		return t.GoBottom()
	}
	n, err := t.getNode(t.curNode)
	if err != nil {
		return 0, false, err
	}
	pos := t.curPos

	for count > 0 {
		n, pos, ok, err = t.stepForward(n, pos)
		if err != nil || !ok {
			t.curValid = false
			return 0, false, err
		}
		count--
	}
	for count < 0 {
		n, pos, ok, err = t.stepBackward(n, pos)
		if err != nil || !ok {
			t.curValid = false
			return 0, false, err
		}
		count++
	}
	t.setCursor(n.offset, pos)
	return n.entries[pos].recno, true, nil
}

// stepForward returns the in-order successor of position (n, pos).
func (t *Tree) stepForward(n *node, pos int) (*node, int, bool, error) {
	if !n.leaf {
		// next is the minimum of the subtree between this entry and the
		// one after it
		var childOff uint32
		if pos+1 < n.keyCount() {
			childOff = n.entries[pos+1].child
		} else {
			childOff = n.right
		}
		if m, p, ok, err := t.firstInOrder(childOff); err != nil || ok {
			return m, p, ok, err
		}
		if pos+1 < n.keyCount() {
			return n, pos + 1, true, nil
		}
		return t.climbForward(n)
	}
	if pos+1 < n.keyCount() {
		return n, pos + 1, true, nil
	}
	return t.climbForward(n)
}

// stepBackward returns the in-order predecessor of position (n, pos).
func (t *Tree) stepBackward(n *node, pos int) (*node, int, bool, error) {
	if !n.leaf {
		if m, p, ok, err := t.lastInOrder(n.entries[pos].child); err != nil || ok {
			return m, p, ok, err
		}
		if pos > 0 {
			return n, pos - 1, true, nil
		}
		return t.climbBackward(n)
	}
	if pos > 0 {
		return n, pos - 1, true, nil
	}
	return t.climbBackward(n)
}

// climbForward resolves the successor of a subtree's last entry: the
// entry of the nearest ancestor whose descent branch was not rightmost.
func (t *Tree) climbForward(n *node) (*node, int, bool, error) {
	path, pathPos, err := t.pathTo(n.offset)
	if err != nil {
		return nil, 0, false, err
	}
	node, pos, ok := successorPosition(path, pathPos)
	return node, pos, ok, nil
}

// climbBackward resolves the predecessor of a subtree's first entry.
func (t *Tree) climbBackward(n *node) (*node, int, bool, error) {
	path, pathPos, err := t.pathTo(n.offset)
	if err != nil {
		return nil, 0, false, err
	}
	for i := len(path) - 1; i >= 0; i-- {
		if pathPos[i] > 0 {
			return path[i], pathPos[i] - 1, true, nil
		}
	}
	return nil, 0, false, nil
}

// Reindex rebuilds the tree from scratch given pairs in any order,
// truncating all existing nodes and starting from a single empty leaf
// root (spec.md §4.2 "Reindex").
func (t *Tree) Reindex(pairs []KeyRecno) error {
	t.hdr.NodeCount = 0
	t.hdr.RootOffset = 0
	t.curValid = false

	root := t.allocateNode(true)
	t.hdr.RootOffset = root.offset
	t.root = root

	if err := t.file.Truncate(int64(headerSize) + t.nodeSize); err != nil {
		return ierr(dbferr.FileWrite, err.Error())
	}
	if err := t.writeNode(root); err != nil {
		return err
	}
	if err := t.writeHeader(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := t.Insert(t.normalizeKey(p.Key), p.Recno); err != nil {
			return err
		}
	}
	return t.file.Sync()
}
