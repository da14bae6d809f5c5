package fst

import (
	"fstrie/bitvec"
)

// buildDense rewrites the levels below the cutoff into fanout-wide bitmap
// form. Called after determineCutoffLevel; walks each level's sparse slots
// left to right, tracking the node ordinal by LOUDS bits.
func (b *Builder) buildDense() error {
	for level := 0; level < b.sparseStartLevel; level++ {
		if err := b.initDenseVectors(level); err != nil {
			return err
		}
		if b.numItems(level) == 0 {
			continue
		}

		nodeNum := uint32(0)
		if b.isTerminator(level, 0) {
			bitvec.SetBit(b.prefixkeyIndicatorBits[level], 0)
		} else {
			b.setLabelAndChildIndicatorBitmap(level, nodeNum, 0)
		}
		for pos := uint32(1); pos < b.numItems(level); pos++ {
			if b.isStartOfNode(level, pos) {
				nodeNum++
				if b.isTerminator(level, pos) {
					bitvec.SetBit(b.prefixkeyIndicatorBits[level], nodeNum)
					continue
				}
			}
			b.setLabelAndChildIndicatorBitmap(level, nodeNum, pos)
		}
	}
	return nil
}

func (b *Builder) initDenseVectors(level int) error {
	numNodes := uint64(b.nodeCounts[level])
	if numNodes*Fanout > maxLevelItems {
		return ErrOversizedLevel
	}
	bitmapWords := numNodes * Fanout / bitvec.WordSize
	prefixWords := (numNodes + bitvec.WordSize - 1) / bitvec.WordSize

	b.bitmapLabels = append(b.bitmapLabels, make([]uint64, bitmapWords))
	b.bitmapChildIndicatorBits = append(b.bitmapChildIndicatorBits, make([]uint64, bitmapWords))
	b.prefixkeyIndicatorBits = append(b.prefixkeyIndicatorBits, make([]uint64, prefixWords))
	return nil
}

// setLabelAndChildIndicatorBitmap transfers one sparse slot into the dense
// bitmaps of its node. A set child indicator always implies a set label bit.
func (b *Builder) setLabelAndChildIndicatorBitmap(level int, nodeNum, pos uint32) {
	label := uint32(b.labels[level][pos])
	bitvec.SetBit(b.bitmapLabels[level], nodeNum*Fanout+label)
	if bitvec.ReadBit(b.childIndicatorBits[level], pos) {
		bitvec.SetBit(b.bitmapChildIndicatorBits[level], nodeNum*Fanout+label)
	}
}
