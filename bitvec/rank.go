package bitvec

import (
	"fstrie/errutil"
)

// DefaultBasicBlockSize is the rank sampling granularity in bits.
const DefaultBasicBlockSize = 512

// Rank augments a BitVector with cumulative popcount samples taken every
// basicBlockSize bits, answering rank queries in constant time.
type Rank struct {
	BitVector
	basicBlockSize uint32
	rankLUT        []uint32
}

// NewRank builds the concatenated vector over [startLevel, endLevel) and its
// rank table. basicBlockSize must be a multiple of the word size.
func NewRank(basicBlockSize uint32, bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel int) *Rank {
	errutil.BugOn(basicBlockSize == 0 || basicBlockSize%WordSize != 0,
		"basic block size %d is not a word multiple", basicBlockSize)
	r := &Rank{
		BitVector:      *NewBitVector(bitsPerLevel, numBitsPerLevel, startLevel, endLevel),
		basicBlockSize: basicBlockSize,
	}
	r.initRankLUT()
	return r
}

func (r *Rank) initRankLUT() {
	wordsPerBlock := r.basicBlockSize / WordSize
	numBlocks := r.numBits/r.basicBlockSize + 1
	r.rankLUT = make([]uint32, numBlocks)

	var cumulative uint32
	for i := uint32(0); i < numBlocks; i++ {
		r.rankLUT[i] = cumulative
		blockBits := r.basicBlockSize
		if remaining := r.numBits - i*r.basicBlockSize; remaining < blockBits {
			blockBits = remaining
		}
		cumulative += popcountLinear(r.bits, i*wordsPerBlock, blockBits)
	}
}

// Rank returns the number of set bits in positions [0, pos). pos may equal
// NumBits, in which case the total popcount is returned.
func (r *Rank) Rank(pos uint32) uint32 {
	errutil.BugOn(pos > r.numBits, "rank position out of range: %d", pos)
	blockID := pos / r.basicBlockSize
	offset := pos % r.basicBlockSize
	return r.rankLUT[blockID] + popcountLinear(r.bits, blockID*(r.basicBlockSize/WordSize), offset)
}

// NumOnes returns the total number of set bits.
func (r *Rank) NumOnes() uint32 {
	return r.Rank(r.numBits)
}

// ByteSize returns the resident size estimate in bytes.
func (r *Rank) ByteSize() int {
	return r.BitVector.ByteSize() + len(r.rankLUT)*4
}
