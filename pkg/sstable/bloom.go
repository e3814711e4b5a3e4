package sstable

import (
	"hash/fnv"
	"math"
)

// bloomFilter is a double-hashed Bloom filter over user keys, sized for a
// target false-positive rate. It is built once per table at flush time and
// persisted alongside the block index, so a reopened table keeps its
// filter.
type bloomFilter struct {
	bits []byte
	k    byte
}

// bloomHash reduces a user key to the single 64-bit hash the filter
// probes with; both probe seeds are derived from its halves.
func bloomHash(userKey []byte) uint64 {
	h := fnv.New64a()
	h.Write(userKey)
	return h.Sum64()
}

// newBloomFilter sizes a filter for n pre-hashed keys at fpRate and
// inserts them all.
func newBloomFilter(hashes []uint64, fpRate float64) *bloomFilter {
	n := len(hashes)
	if n == 0 {
		n = 1
	}
	m := int(math.Ceil(-float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2)))
	if m < 8 {
		m = 8
	}
	k := int(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}

	bf := &bloomFilter{bits: make([]byte, (m+7)/8), k: byte(k)}
	for _, h := range hashes {
		bf.insert(h)
	}
	return bf
}

// probe returns the i-th bit position for h. The step h2 is forced odd: the
// bit count is a multiple of 8, and an even step would fold the probes onto
// a shorter cycle of positions.
func (bf *bloomFilter) probe(h uint64, i byte) uint32 {
	h1, h2 := uint32(h), uint32(h>>32)|1
	return (h1 + uint32(i)*h2) % uint32(len(bf.bits)*8)
}

func (bf *bloomFilter) insert(h uint64) {
	for i := byte(0); i < bf.k; i++ {
		pos := bf.probe(h, i)
		bf.bits[pos/8] |= 1 << (pos % 8)
	}
}

// mayContain reports whether the hashed key may have been inserted; false
// means definitely absent.
func (bf *bloomFilter) mayContain(h uint64) bool {
	for i := byte(0); i < bf.k; i++ {
		pos := bf.probe(h, i)
		if bf.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// encode serializes the filter as bits || k.
func (bf *bloomFilter) encode() []byte {
	return append(append([]byte(nil), bf.bits...), bf.k)
}

// decodeBloomFilter is encode's inverse; a zero-length region means the
// table carries no filter.
func decodeBloomFilter(raw []byte) *bloomFilter {
	if len(raw) < 2 {
		return nil
	}
	return &bloomFilter{
		bits: raw[:len(raw)-1],
		k:    raw[len(raw)-1],
	}
}
