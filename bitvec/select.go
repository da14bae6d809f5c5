package bitvec

import (
	"fstrie/errutil"
)

// DefaultSampleInterval is the select sampling granularity in set bits.
const DefaultSampleInterval = 64

// Select augments a BitVector with position samples of every
// sampleInterval-th set bit. Construction requires bit 0 to be set; LOUDS
// bit vectors satisfy this on every non-empty level because a level always
// opens with a node start.
type Select struct {
	BitVector
	sampleInterval uint32
	numOnes        uint32
	selectLUT      []uint32
}

// NewSelect builds the concatenated vector over [startLevel, endLevel) and
// its select table.
func NewSelect(sampleInterval uint32, bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel int) *Select {
	errutil.BugOn(sampleInterval == 0, "sample interval must be positive")
	s := &Select{
		BitVector:      *NewBitVector(bitsPerLevel, numBitsPerLevel, startLevel, endLevel),
		sampleInterval: sampleInterval,
	}
	s.initSelectLUT()
	return s
}

func (s *Select) initSelectLUT() {
	errutil.BugOn(s.numBits > 0 && !ReadBit(s.bits, 0), "first bit must be set")

	numWords := s.numBits / WordSize
	if s.numBits%WordSize != 0 {
		numWords++
	}

	s.selectLUT = append(s.selectLUT, 0) // position of the first set bit
	samplingOnes := s.sampleInterval
	var cumulativeOnes uint32
	for i := uint32(0); i < numWords; i++ {
		onesInWord := Popcount(s.bits[i])
		for samplingOnes <= cumulativeOnes+onesInWord {
			diff := samplingOnes - cumulativeOnes
			s.selectLUT = append(s.selectLUT, i*WordSize+SelectInWord(s.bits[i], diff))
			samplingOnes += s.sampleInterval
		}
		cumulativeOnes += onesInWord
	}
	s.numOnes = cumulativeOnes
}

// Select returns the position of the rank-th set bit. Positions are
// zero-based; rank is one-based: for 100101000, Select(3) = 5.
func (s *Select) Select(rank uint32) uint32 {
	errutil.BugOn(rank == 0 || rank > s.numOnes, "select rank out of range: %d", rank)

	lutIdx := rank / s.sampleInterval
	rankLeft := rank % s.sampleInterval
	// Slot 0 holds the position of the first set bit (rank 1, not rank
	// sampleInterval), so one unit of the remainder is already consumed.
	if lutIdx == 0 {
		rankLeft--
	}

	pos := s.selectLUT[lutIdx]
	if rankLeft == 0 {
		return pos
	}

	wordID := pos / WordSize
	offset := pos % WordSize
	if offset == WordSize-1 {
		wordID++
		offset = 0
	} else {
		offset++
	}
	word := s.bits[wordID] << offset >> offset // zero out the bits before offset
	onesInWord := Popcount(word)
	for onesInWord < rankLeft {
		wordID++
		word = s.bits[wordID]
		rankLeft -= onesInWord
		onesInWord = Popcount(word)
	}
	return wordID*WordSize + SelectInWord(word, rankLeft)
}

// NumOnes returns the total number of set bits.
func (s *Select) NumOnes() uint32 {
	return s.numOnes
}

// ByteSize returns the resident size estimate in bytes.
func (s *Select) ByteSize() int {
	return s.BitVector.ByteSize() + len(s.selectLUT)*4
}
