// Package stripe implements the RAID-4/5-style stripe layout and parity
// codec: pure, deterministic functions over byte buffers plus a thin
// Reed-Solomon-backed Codec for the encode path.
package stripe

import (
	"fmt"
	"math/rand"

	"github.com/Anthya1104/dss/internal/rsutil"
	"github.com/klauspost/reedsolomon"
)

// Codec encodes stripes for a DSS of a fixed width n and striping unit. It
// is built the same way raid5.RAID5Controller builds its Reed-Solomon
// encoder: n-1 data shards, exactly one parity shard. The encoder is built
// with reedsolomon.WithFastOneParityMatrix, whose single parity row is the
// all-ones vector over GF(256), so the parity shard this produces is
// byte-identical to the XOR of the data shards, matching Parity below.
type Codec struct {
	n    int
	unit int
	enc  reedsolomon.Encoder
}

// NewCodec validates n and unit and builds the shared encoder for a DSS.
func NewCodec(n, unit int) (*Codec, error) {
	if n < 3 {
		return nil, fmt.Errorf("stripe: n must be >= 3, got %d", n)
	}
	if !isValidStripingUnit(unit) {
		return nil, fmt.Errorf("stripe: striping unit %d must be a power of two in [128, 1048576]", unit)
	}

	enc, err := reedsolomon.New(n-1, 1, reedsolomon.WithFastOneParityMatrix())
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create reed-solomon encoder: %w", err)
	}

	return &Codec{n: n, unit: unit, enc: enc}, nil
}

func isValidStripingUnit(unit int) bool {
	if unit < 128 || unit > 1048576 {
		return false
	}
	return unit&(unit-1) == 0
}

// N returns the DSS width.
func (c *Codec) N() int { return c.n }

// Unit returns the striping unit in bytes.
func (c *Codec) Unit() int { return c.unit }

// EncodeStripe takes n-1 data blocks, each exactly Unit() bytes, and
// returns the parity block computed by the Reed-Solomon encoder. The
// shard construction itself is rsutil.EncodeStripeShards.
func (c *Codec) EncodeStripe(dataBlocks [][]byte) ([]byte, error) {
	if len(dataBlocks) != c.n-1 {
		return nil, fmt.Errorf("stripe: expected %d data blocks, got %d", c.n-1, len(dataBlocks))
	}

	flat := make([]byte, 0, (c.n-1)*c.unit)
	for i, b := range dataBlocks {
		if len(b) != c.unit {
			return nil, fmt.Errorf("stripe: data block %d has length %d, want %d", i, len(b), c.unit)
		}
		flat = append(flat, b...)
	}

	shards, err := rsutil.EncodeStripeShards(flat, c.unit, c.enc, c.n-1, 1)
	if err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return shards[c.n-1], nil
}

// Parity computes the byte-wise XOR of equal-length blocks. An empty
// input returns an empty buffer. This is both the reference definition of
// parity (spec.md §4.1) and the single-erasure reconstruction operation:
// XORing any n-1 surviving blocks of a stripe (data and/or parity)
// recovers whichever one block is missing.
func Parity(blocks [][]byte) ([]byte, error) {
	if len(blocks) == 0 {
		return []byte{}, nil
	}

	size := len(blocks[0])
	out := make([]byte, size)
	copy(out, blocks[0])

	for _, block := range blocks[1:] {
		if len(block) != size {
			return nil, fmt.Errorf("stripe: parity inputs have mismatched lengths (%d vs %d)", len(block), size)
		}
		for i := range out {
			out[i] ^= block[i]
		}
	}
	return out, nil
}

// StripeCount returns the number of stripes needed to hold a file of
// fileSize bytes striped across n disks with the given unit: ceil(F / ((n-1)*U)).
func StripeCount(fileSize, n, unit int) int {
	dataBytesPerStripe := (n - 1) * unit
	if dataBytesPerStripe <= 0 {
		return 0
	}
	return (fileSize + dataBytesPerStripe - 1) / dataBytesPerStripe
}

// ParityIndex returns the disk position holding the parity block for
// stripe s in a DSS of width n: n - 1 - (s mod n).
func ParityIndex(stripe, n int) int {
	return n - 1 - (stripe % n)
}

// Pad truncates buf to unit bytes if longer, otherwise zero-extends it.
func Pad(buf []byte, unit int) []byte {
	out := make([]byte, unit)
	copy(out, buf)
	return out
}

// InjectFlip returns a copy of block with one uniformly random bit
// flipped. rng must be supplied by the caller so tests can control the
// seed (per spec, inject_flip must be reproducible).
func InjectFlip(block []byte, rng *rand.Rand) []byte {
	if len(block) == 0 {
		return block
	}
	out := make([]byte, len(block))
	copy(out, block)

	byteIdx := rng.Intn(len(out))
	bitIdx := rng.Intn(8)
	out[byteIdx] ^= 1 << uint(bitIdx)
	return out
}

// Verify reports whether parity(dataBlocks) equals parityBlock.
func Verify(dataBlocks [][]byte, parityBlock []byte) (bool, error) {
	computed, err := Parity(dataBlocks)
	if err != nil {
		return false, err
	}
	if len(computed) != len(parityBlock) {
		return false, nil
	}
	for i := range computed {
		if computed[i] != parityBlock[i] {
			return false, nil
		}
	}
	return true, nil
}

// Reconstruct recovers the single block missing from a stripe by XORing
// the surviving blocks together (see Parity's doc comment).
func Reconstruct(survivingBlocks [][]byte) ([]byte, error) {
	return Parity(survivingBlocks)
}

// ReconstructBlock recovers the block at missingDiskIdx using the
// Reed-Solomon decoder rather than plain XOR. diskOrderShards has one
// entry per disk position (0..n-1, matching parityIdx's rotation), with
// the missing position's entry ignored. The RS encoder was built over
// (data shard 0..n-2, parity shard n-1) in a fixed order that does not
// rotate with the stripe, so disk positions are remapped to that order
// before calling encoder.Reconstruct and back afterward.
func (c *Codec) ReconstructBlock(diskOrderShards [][]byte, missingDiskIdx, parityIdx int) ([]byte, error) {
	if len(diskOrderShards) != c.n {
		return nil, fmt.Errorf("stripe: expected %d shards, got %d", c.n, len(diskOrderShards))
	}

	toRS := func(diskIdx int) int {
		switch {
		case diskIdx == parityIdx:
			return c.n - 1
		case diskIdx < parityIdx:
			return diskIdx
		default:
			return diskIdx - 1
		}
	}

	rsOrder := make([][]byte, c.n)
	for d := 0; d < c.n; d++ {
		if d == missingDiskIdx {
			continue
		}
		rsOrder[toRS(d)] = diskOrderShards[d]
	}

	if err := rsutil.ReconstructStripeShards(rsOrder, c.enc, 1); err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return rsOrder[toRS(missingDiskIdx)], nil
}
