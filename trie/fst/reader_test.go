package fst

import (
	"fstrie/bitvec"
)

// testReader drives a built Trie the way the external read side would:
// rank/select structures are instantiated over per-level regions of the
// artifact, and a point lookup resolves a key to its stored input rank.
// It lives in the test files because the query API itself is outside the
// core surface.
type testReader struct {
	trie *Trie

	// dense region, indexed by level < sparseStartLevel
	labelRank  []*bitvec.Rank
	dChildRank []*bitvec.Rank
	prefixRank []*bitvec.Rank
	denseBase  []uint32

	// sparse region, indexed by level; entries below sparseStartLevel nil
	childRank   []*bitvec.Rank
	loudsSelect []*bitvec.Select
	sparseBase  []uint32
}

func newTestReader(t *Trie) *testReader {
	r := &testReader{trie: t}
	height := t.Height()
	start := t.SparseStartLevel()

	denseBits := make([]uint32, start)
	prefixBits := make([]uint32, start)
	for level := 0; level < start; level++ {
		denseBits[level] = t.NodeCount(level) * Fanout
		prefixBits[level] = t.NodeCount(level)
	}

	r.labelRank = make([]*bitvec.Rank, start)
	r.dChildRank = make([]*bitvec.Rank, start)
	r.prefixRank = make([]*bitvec.Rank, start)
	r.denseBase = make([]uint32, start)
	var base uint32
	for level := 0; level < start; level++ {
		r.labelRank[level] = bitvec.NewRank(bitvec.DefaultBasicBlockSize, t.bitmapLabels, denseBits, level, level+1)
		r.dChildRank[level] = bitvec.NewRank(bitvec.DefaultBasicBlockSize, t.bitmapChildIndicatorBits, denseBits, level, level+1)
		r.prefixRank[level] = bitvec.NewRank(bitvec.DefaultBasicBlockSize, t.prefixkeyIndicatorBits, prefixBits, level, level+1)
		r.denseBase[level] = base
		base += r.prefixRank[level].NumOnes() +
			r.labelRank[level].NumOnes() - r.dChildRank[level].NumOnes()
	}

	r.childRank = make([]*bitvec.Rank, height)
	r.loudsSelect = make([]*bitvec.Select, height)
	r.sparseBase = make([]uint32, height)
	items := t.NumItemsPerLevel()
	base = 0
	for level := start; level < height; level++ {
		r.childRank[level] = bitvec.NewRank(bitvec.DefaultBasicBlockSize, t.childIndicatorBits, items, level, level+1)
		r.loudsSelect[level] = bitvec.NewSelect(bitvec.DefaultSampleInterval, t.loudsBits, items, level, level+1)
		r.sparseBase[level] = base
		base += t.NumItems(level) - r.childRank[level].NumOnes()
	}
	return r
}

// Lookup follows key byte-by-byte through the dense bitmaps and sparse
// vectors and returns the input rank stored at its terminus.
func (r *testReader) Lookup(key []byte) (uint64, bool) {
	t := r.trie
	level := 0
	nodeNum := uint32(0)

	for level < t.SparseStartLevel() {
		if level == len(key) {
			if bitvec.ReadBit(t.prefixkeyIndicatorBits[level], nodeNum) {
				off := r.denseBase[level] + r.densePrefixValueOffset(level, nodeNum)
				return t.PositionsDense()[off], true
			}
			return 0, false
		}
		pos := nodeNum*Fanout + uint32(key[level])
		if !bitvec.ReadBit(t.bitmapLabels[level], pos) {
			return 0, false
		}
		if !bitvec.ReadBit(t.bitmapChildIndicatorBits[level], pos) {
			off := r.denseBase[level] + r.denseLabelValueOffset(level, nodeNum, pos)
			return t.PositionsDense()[off], true
		}
		nodeNum = r.dChildRank[level].Rank(pos+1) - 1
		level++
	}

	for level < t.Height() {
		start, end := r.nodeBounds(level, nodeNum)
		if level == len(key) {
			if t.labels[level][start] == Terminator && !bitvec.ReadBit(t.childIndicatorBits[level], start) {
				off := r.sparseBase[level] + start - r.childRank[level].Rank(start)
				return t.PositionsSparse()[off], true
			}
			return 0, false
		}
		pos, found := r.findLabel(level, start, end, key[level])
		if !found {
			return 0, false
		}
		if !bitvec.ReadBit(t.childIndicatorBits[level], pos) {
			off := r.sparseBase[level] + pos - r.childRank[level].Rank(pos)
			return t.PositionsSparse()[off], true
		}
		nodeNum = r.childRank[level].Rank(pos+1) - 1
		level++
	}
	return 0, false
}

// Value slots within a dense level follow sparse slot order: a node's
// terminator first, then its childless labels in byte order.
func (r *testReader) densePrefixValueOffset(level int, nodeNum uint32) uint32 {
	pos := nodeNum * Fanout
	return r.labelRank[level].Rank(pos) - r.dChildRank[level].Rank(pos) +
		r.prefixRank[level].Rank(nodeNum)
}

func (r *testReader) denseLabelValueOffset(level int, nodeNum, pos uint32) uint32 {
	return r.labelRank[level].Rank(pos) - r.dChildRank[level].Rank(pos) +
		r.prefixRank[level].Rank(nodeNum+1)
}

func (r *testReader) nodeBounds(level int, nodeNum uint32) (uint32, uint32) {
	sel := r.loudsSelect[level]
	start := sel.Select(nodeNum + 1)
	end := r.trie.NumItems(level)
	if nodeNum+2 <= sel.NumOnes() {
		end = sel.Select(nodeNum + 2)
	}
	return start, end
}

func (r *testReader) findLabel(level int, start, end uint32, b byte) (uint32, bool) {
	labels := r.trie.labels[level]
	for pos := start; pos < end; pos++ {
		if labels[pos] == b {
			return pos, true
		}
	}
	return 0, false
}
