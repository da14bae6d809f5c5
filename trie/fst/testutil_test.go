package fst

import (
	"math/rand"

	"fstrie/bitvec"
)

// bitsString renders the first n logical bits of words as a binary string.
func bitsString(words []uint64, n uint32) string {
	buf := make([]byte, n)
	for i := uint32(0); i < n; i++ {
		if bitvec.ReadBit(words, i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// countOnes counts the set bits among the first n logical bits of words.
func countOnes(words []uint64, n uint32) uint32 {
	var total uint32
	for i := uint32(0); i < n; i++ {
		if bitvec.ReadBit(words, i) {
			total++
		}
	}
	return total
}

// genRandomKeys returns sorted, de-duplicated random keys that avoid the
// reserved terminator byte.
func genRandomKeys(n, maxLen int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	keys := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		k := make([]byte, 1+r.Intn(maxLen))
		for j := range k {
			k[j] = byte(r.Intn(int(Terminator)))
		}
		keys = append(keys, k)
	}
	return PrepareKeys(keys)
}

// genPrefixRichKeys mixes random keys with prefixes of themselves so the
// builder has to emit terminator slots.
func genPrefixRichKeys(n, maxLen int, seed int64) [][]byte {
	keys := genRandomKeys(n, maxLen, seed)
	withPrefixes := make([][]byte, 0, len(keys)*4/3)
	for i, k := range keys {
		withPrefixes = append(withPrefixes, k)
		if i%3 == 0 && len(k) > 1 {
			withPrefixes = append(withPrefixes, k[:len(k)/2+1])
		}
	}
	return PrepareKeys(withPrefixes)
}

func mustBuild(keys [][]byte, includeDense bool, ratio uint32) *Trie {
	trie, err := NewBuilder(includeDense, ratio).Build(keys)
	if err != nil {
		panic(err)
	}
	return trie
}
