package fst

import (
	"bytes"
	"errors"
	"math"

	"golang.org/x/exp/slices"

	"fstrie/bitvec"
	"fstrie/errutil"
)

const (
	// Terminator is the reserved label marking a slot whose root path is
	// itself a key. Keys must not contain this byte.
	Terminator byte = 0xFF

	// Fanout is the alphabet width of a dense node bitmap.
	Fanout = 256

	// DefaultSparseDenseRatio favors a dense region roughly 64 times
	// smaller than the sparse levels it replaces.
	DefaultSparseDenseRatio = 64
)

var (
	ErrEmptyInput     = errors.New("fst: empty key list")
	ErrOversizedLevel = errors.New("fst: level exceeds position width")
)

// maxLevelItems bounds the per-level slot count so every bit position,
// including the trailing spare word, stays within uint32.
const maxLevelItems = math.MaxUint32 - bitvec.WordSize

// Builder fills the LOUDS-Dense and LOUDS-Sparse vectors through a single
// scan of a sorted key list. A Builder is single-use: Build moves all
// vectors into the returned Trie.
type Builder struct {
	includeDense     bool
	sparseDenseRatio uint32
	sparseStartLevel int

	// input rank of every key whose unique suffix terminates at the level
	positions [][]uint64

	// LOUDS-Sparse vectors
	labels             [][]byte
	childIndicatorBits [][]uint64
	loudsBits          [][]uint64
	positionsSparse    []uint64

	// LOUDS-Dense vectors
	bitmapLabels             [][]uint64
	bitmapChildIndicatorBits [][]uint64
	prefixkeyIndicatorBits   [][]uint64
	positionsDense           []uint64

	// per-level bookkeeping
	nodeCounts           []uint32
	isLastItemTerminator []bool
}

// NewBuilder returns a builder. With includeDense false the whole trie is
// emitted in sparse form; otherwise sparseDenseRatio is the R parameter of
// the cutoff policy (higher R shrinks the dense region).
func NewBuilder(includeDense bool, sparseDenseRatio uint32) *Builder {
	return &Builder{
		includeDense:     includeDense,
		sparseDenseRatio: sparseDenseRatio,
	}
}

// Build constructs the trie over keys, which must be sorted in
// non-decreasing order. Adjacent duplicates are collapsed; the first
// occurrence keeps its input rank. Build either returns a complete Trie or
// an error, never partial output.
func (b *Builder) Build(keys [][]byte) (*Trie, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyInput
	}
	errutil.BugOn(!keysSorted(keys), "build requires sorted keys")

	if err := b.buildSparse(keys); err != nil {
		return nil, err
	}
	if b.includeDense {
		b.determineCutoffLevel()
		if err := b.buildDense(); err != nil {
			return nil, err
		}
	}
	b.splitPositions()
	return b.intoTrie(), nil
}

func keysSorted(keys [][]byte) bool {
	return slices.IsSortedFunc(keys, func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
}

func (b *Builder) buildSparse(keys [][]byte) error {
	for i := 0; i < len(keys); i++ {
		level := b.skipCommonPrefix(keys[i])
		curpos := i
		for i+1 < len(keys) && bytes.Equal(keys[curpos], keys[i+1]) {
			i++
		}
		var nextKey []byte
		if i < len(keys)-1 {
			nextKey = keys[i+1]
		}
		b.insertKeyBytesToTrieUntilUnique(keys[curpos], uint64(curpos), nextKey, level)
	}
	if uint64(b.treeHeight()) > math.MaxUint32 {
		return ErrOversizedLevel
	}
	for level := 0; level < b.treeHeight(); level++ {
		if uint64(len(b.labels[level])) > maxLevelItems {
			return ErrOversizedLevel
		}
	}
	return nil
}

// skipCommonPrefix walks down the partially filled trie while key matches
// the previous key, whose bytes sit as the last slot of each level. Every
// matched level gets its trailing slot's child indicator set.
func (b *Builder) skipCommonPrefix(key []byte) int {
	level := 0
	for level < len(key) && b.isCharCommonPrefix(key[level], level) {
		bitvec.SetBit(b.childIndicatorBits[level], b.numItems(level)-1)
		level++
	}
	return level
}

// insertKeyBytesToTrieUntilUnique appends key's bytes from startLevel until
// the stored prefix is unique against nextKey, then records the key's input
// rank at the level of its last written slot. Called after skipCommonPrefix,
// so the prefix above startLevel is already stored in the trie.
func (b *Builder) insertKeyBytesToTrieUntilUnique(key []byte, position uint64, nextKey []byte, startLevel int) int {
	level := startLevel

	// A key fully consumed during the common-prefix walk is the empty key
	// opening the list; it terminates as a prefix key at the root.
	if level == len(key) {
		b.insertKeyByte(Terminator, level, b.isLevelEmpty(level), true)
		b.positions[level] = append(b.positions[level], position)
		return level + 1
	}

	isStartOfNode := false
	if b.isLevelEmpty(level) {
		isStartOfNode = true
	}

	// After skipping the common prefix, the first following byte shares a
	// node with the previous key's byte at this level.
	b.insertKeyByte(key[level], level, isStartOfNode, false)
	level++

	if level > len(nextKey) || !bytes.Equal(key[:level], nextKey[:level]) {
		b.positions[level-1] = append(b.positions[level-1], position)
		return level
	}

	// Every following byte starts a new singleton node extending the branch.
	isStartOfNode = true
	for level < len(key) && level < len(nextKey) && key[level-1] == nextKey[level-1] {
		b.insertKeyByte(key[level], level, isStartOfNode, false)
		level++
	}

	// key is a strict prefix of nextKey: close it with a terminator slot so
	// nextKey's common-prefix walk cannot merge past the terminus.
	if level == len(key) && level < len(nextKey) && key[level-1] == nextKey[level-1] {
		b.insertKeyByte(Terminator, level, true, true)
		level++
	}

	b.positions[level-1] = append(b.positions[level-1], position)
	return level
}

func (b *Builder) isCharCommonPrefix(c byte, level int) bool {
	return level < b.treeHeight() &&
		!b.isLastItemTerminator[level] &&
		c == b.labels[level][len(b.labels[level])-1]
}

func (b *Builder) isLevelEmpty(level int) bool {
	return level >= b.treeHeight() || len(b.labels[level]) == 0
}

// insertKeyByte appends one slot at level, allocating the level on first
// touch and keeping the parent's trailing child indicator set.
func (b *Builder) insertKeyByte(c byte, level int, isStartOfNode, isTerm bool) {
	if level >= b.treeHeight() {
		b.addLevel()
	}

	if level > 0 {
		bitvec.SetBit(b.childIndicatorBits[level-1], b.numItems(level-1)-1)
	}

	b.labels[level] = append(b.labels[level], c)
	if isStartOfNode {
		bitvec.SetBit(b.loudsBits[level], b.numItems(level)-1)
		b.nodeCounts[level]++
	}
	b.isLastItemTerminator[level] = isTerm

	b.moveToNextItemSlot(level)
}

// moveToNextItemSlot grows both per-level bit arrays by one zero word when
// the next slot would cross a word boundary.
func (b *Builder) moveToNextItemSlot(level int) {
	if b.numItems(level)%bitvec.WordSize == 0 {
		b.childIndicatorBits[level] = append(b.childIndicatorBits[level], 0)
		b.loudsBits[level] = append(b.loudsBits[level], 0)
	}
}

func (b *Builder) addLevel() {
	b.labels = append(b.labels, nil)
	b.positions = append(b.positions, nil)
	b.childIndicatorBits = append(b.childIndicatorBits, []uint64{0})
	b.loudsBits = append(b.loudsBits, []uint64{0})

	b.nodeCounts = append(b.nodeCounts, 0)
	b.isLastItemTerminator = append(b.isLastItemTerminator, false)
}

func (b *Builder) treeHeight() int {
	return len(b.labels)
}

func (b *Builder) numItems(level int) uint32 {
	return uint32(len(b.labels[level]))
}

func (b *Builder) isStartOfNode(level int, pos uint32) bool {
	return bitvec.ReadBit(b.loudsBits[level], pos)
}

func (b *Builder) isTerminator(level int, pos uint32) bool {
	return b.labels[level][pos] == Terminator &&
		!bitvec.ReadBit(b.childIndicatorBits[level], pos)
}

// determineCutoffLevel picks the first level where the dense encoding,
// weighted by the configured ratio, stops paying for itself. The scan
// stops at the first failing level; it does not binary search.
func (b *Builder) determineCutoffLevel() {
	cutoffLevel := 0
	for cutoffLevel < b.treeHeight() &&
		b.computeDenseMem(cutoffLevel)*uint64(b.sparseDenseRatio) < b.computeSparseMem(cutoffLevel) {
		cutoffLevel++
	}
	b.sparseStartLevel = cutoffLevel
}

// computeDenseMem is the cost of storing levels [0, downtoLevel) in dense
// form: two fanout-wide bitmaps per node plus the prefix-key bits of the
// level above.
func (b *Builder) computeDenseMem(downtoLevel int) uint64 {
	var mem uint64
	for level := 0; level < downtoLevel; level++ {
		mem += 2 * Fanout * uint64(b.nodeCounts[level])
		if level > 0 {
			mem += (uint64(b.nodeCounts[level-1])+7)/8 + 1
		}
	}
	return mem
}

// computeSparseMem is the cost of storing levels [startLevel, height) in
// sparse form: one byte per label plus two parallel bit vectors.
func (b *Builder) computeSparseMem(startLevel int) uint64 {
	var mem uint64
	for level := startLevel; level < b.treeHeight(); level++ {
		numItems := uint64(b.numItems(level))
		mem += numItems + 2*((numItems+7)/8) + 1
	}
	return mem
}

// splitPositions linearizes the per-level position lists: levels below the
// cutoff concatenate into positionsDense, the rest into positionsSparse,
// input order preserved within each level.
func (b *Builder) splitPositions() {
	for level := 0; level < b.sparseStartLevel && level < len(b.positions); level++ {
		b.positionsDense = append(b.positionsDense, b.positions[level]...)
	}
	for level := b.sparseStartLevel; level < len(b.positions); level++ {
		b.positionsSparse = append(b.positionsSparse, b.positions[level]...)
	}
	b.positions = nil
}
