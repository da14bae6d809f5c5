package fst

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"fstrie/utils"
)

// Trie is the finished, immutable artifact: levels below SparseStartLevel
// in LOUDS-Dense bitmap form, the rest in LOUDS-Sparse form, plus the
// per-level position lists linearized into the two layouts. A Trie is
// read-only and safe for concurrent use; rank/select structures built over
// its vectors must not outlive it.
type Trie struct {
	treeHeight       int
	sparseStartLevel int

	// LOUDS-Sparse, levels [sparseStartLevel, treeHeight)
	labels             [][]byte
	childIndicatorBits [][]uint64
	loudsBits          [][]uint64
	positionsSparse    []uint64

	// LOUDS-Dense, levels [0, sparseStartLevel)
	bitmapLabels             [][]uint64
	bitmapChildIndicatorBits [][]uint64
	prefixkeyIndicatorBits   [][]uint64
	positionsDense           []uint64

	nodeCounts []uint32
	numItems   []uint32
}

// intoTrie moves the builder's vectors into an immutable Trie. The sparse
// vectors of dense-converted levels are dropped; their slot counts survive
// in numItems.
func (b *Builder) intoTrie() *Trie {
	t := &Trie{
		treeHeight:       b.treeHeight(),
		sparseStartLevel: b.sparseStartLevel,

		labels:             b.labels,
		childIndicatorBits: b.childIndicatorBits,
		loudsBits:          b.loudsBits,
		positionsSparse:    b.positionsSparse,

		bitmapLabels:             b.bitmapLabels,
		bitmapChildIndicatorBits: b.bitmapChildIndicatorBits,
		prefixkeyIndicatorBits:   b.prefixkeyIndicatorBits,
		positionsDense:           b.positionsDense,

		nodeCounts: b.nodeCounts,
	}
	t.numItems = make([]uint32, t.treeHeight)
	for level := 0; level < t.treeHeight; level++ {
		t.numItems[level] = uint32(len(t.labels[level]))
	}
	for level := 0; level < t.sparseStartLevel; level++ {
		t.labels[level] = nil
		t.childIndicatorBits[level] = nil
		t.loudsBits[level] = nil
	}
	return t
}

// Height returns the number of trie levels.
func (t *Trie) Height() int {
	return t.treeHeight
}

// SparseStartLevel returns the first level stored in sparse form; levels
// above it are dense. Zero means the whole trie is sparse.
func (t *Trie) SparseStartLevel() int {
	return t.sparseStartLevel
}

// NodeCount returns the number of nodes at level.
func (t *Trie) NodeCount(level int) uint32 {
	return t.nodeCounts[level]
}

// NumItems returns the number of slots at level, including levels that were
// rewritten into dense form.
func (t *Trie) NumItems(level int) uint32 {
	return t.numItems[level]
}

// NumItemsPerLevel returns the per-level slot counts; usable as the logical
// bit lengths of the per-level sparse bit vectors.
func (t *Trie) NumItemsPerLevel() []uint32 {
	return t.numItems
}

// Labels returns the label bytes of a sparse level, nil for dense levels.
func (t *Trie) Labels(level int) []byte {
	return t.labels[level]
}

// ChildIndicatorBits returns the child-indicator words of a sparse level.
func (t *Trie) ChildIndicatorBits(level int) []uint64 {
	return t.childIndicatorBits[level]
}

// LoudsBits returns the node-delimiter words of a sparse level.
func (t *Trie) LoudsBits(level int) []uint64 {
	return t.loudsBits[level]
}

// ChildIndicatorBitsPerLevel exposes the per-level child-indicator arrays
// for region-wise rank/select construction.
func (t *Trie) ChildIndicatorBitsPerLevel() [][]uint64 {
	return t.childIndicatorBits
}

// LoudsBitsPerLevel exposes the per-level LOUDS arrays for region-wise
// rank/select construction.
func (t *Trie) LoudsBitsPerLevel() [][]uint64 {
	return t.loudsBits
}

// BitmapLabels returns the label bitmap of a dense level, Fanout bits per
// node.
func (t *Trie) BitmapLabels(level int) []uint64 {
	return t.bitmapLabels[level]
}

// BitmapChildIndicatorBits returns the child-indicator bitmap of a dense
// level.
func (t *Trie) BitmapChildIndicatorBits(level int) []uint64 {
	return t.bitmapChildIndicatorBits[level]
}

// PrefixkeyIndicatorBits returns the prefix-key bits of a dense level, one
// bit per node.
func (t *Trie) PrefixkeyIndicatorBits(level int) []uint64 {
	return t.prefixkeyIndicatorBits[level]
}

// PositionsDense returns the input ranks of keys terminating in the dense
// region, level order across levels, input order within each level.
func (t *Trie) PositionsDense() []uint64 {
	return t.positionsDense
}

// PositionsSparse returns the input ranks of keys terminating in the sparse
// region.
func (t *Trie) PositionsSparse() []uint64 {
	return t.positionsSparse
}

// NumKeys returns the number of distinct keys indexed.
func (t *Trie) NumKeys() int {
	return len(t.positionsDense) + len(t.positionsSparse)
}

// ByteSize returns the resident size estimate in bytes.
func (t *Trie) ByteSize() int {
	size := 0
	for level := 0; level < t.treeHeight; level++ {
		size += len(t.labels[level])
		size += len(t.childIndicatorBits[level]) * 8
		size += len(t.loudsBits[level]) * 8
	}
	for level := 0; level < t.sparseStartLevel; level++ {
		size += len(t.bitmapLabels[level]) * 8
		size += len(t.bitmapChildIndicatorBits[level]) * 8
		size += len(t.prefixkeyIndicatorBits[level]) * 8
	}
	size += len(t.positionsDense) * 8
	size += len(t.positionsSparse) * 8
	size += len(t.nodeCounts) * 4
	size += len(t.numItems) * 4
	return size
}

// MemDetailed returns a hierarchical memory usage report.
func (t *Trie) MemDetailed() utils.MemReport {
	var labelBytes, sparseBitBytes, denseBitBytes int
	for level := 0; level < t.treeHeight; level++ {
		labelBytes += len(t.labels[level])
		sparseBitBytes += (len(t.childIndicatorBits[level]) + len(t.loudsBits[level])) * 8
	}
	for level := 0; level < t.sparseStartLevel; level++ {
		denseBitBytes += (len(t.bitmapLabels[level]) +
			len(t.bitmapChildIndicatorBits[level]) +
			len(t.prefixkeyIndicatorBits[level])) * 8
	}
	positionBytes := (len(t.positionsDense) + len(t.positionsSparse)) * 8

	return utils.MemReport{
		Name:       "fst",
		TotalBytes: t.ByteSize(),
		Children: []utils.MemReport{
			{Name: "sparse_labels", TotalBytes: labelBytes},
			{Name: "sparse_bitvectors", TotalBytes: sparseBitBytes},
			{Name: "dense_bitmaps", TotalBytes: denseBitBytes},
			{Name: "positions", TotalBytes: positionBytes},
		},
	}
}

// Fingerprint hashes every output vector into a single value. Two builds
// over the same key list and configuration produce the same fingerprint.
func (t *Trie) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	writeWords := func(words []uint64) {
		writeU64(uint64(len(words)))
		for _, w := range words {
			writeU64(w)
		}
	}

	writeU64(uint64(t.treeHeight))
	writeU64(uint64(t.sparseStartLevel))
	for level := t.sparseStartLevel; level < t.treeHeight; level++ {
		writeU64(uint64(len(t.labels[level])))
		_, _ = h.Write(t.labels[level])
		writeWords(t.childIndicatorBits[level])
		writeWords(t.loudsBits[level])
	}
	for level := 0; level < t.sparseStartLevel; level++ {
		writeWords(t.bitmapLabels[level])
		writeWords(t.bitmapChildIndicatorBits[level])
		writeWords(t.prefixkeyIndicatorBits[level])
	}
	writeU64(uint64(len(t.positionsDense)))
	for _, p := range t.positionsDense {
		writeU64(p)
	}
	writeU64(uint64(len(t.positionsSparse)))
	for _, p := range t.positionsSparse {
		writeU64(p)
	}
	for _, c := range t.nodeCounts {
		writeU64(uint64(c))
	}
	return h.Sum64()
}
