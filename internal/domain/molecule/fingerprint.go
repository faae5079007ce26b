package molecule

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/molscout/pkg/errors"
)

// FingerprintType names the algorithm that produced a fingerprint.
type FingerprintType string

const FingerprintMorgan FingerprintType = "morgan"

// Fingerprint is a packed bit vector; bit i lives in byte i/8 at position i%8.
type Fingerprint struct {
	Type      FingerprintType `json:"type"`
	Bits      []byte          `json:"bits"`
	Length    int             `json:"length"`
	NumOnBits int             `json:"num_on_bits"`
}

// NewFingerprint returns an all-zero fingerprint of length bits.
func NewFingerprint(fpType FingerprintType, length int) *Fingerprint {
	return &Fingerprint{Type: fpType, Bits: make([]byte, (length+7)/8), Length: length}
}

// GetBit reports whether bit index is set. Out-of-range indices are unset.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets bit index, keeping NumOnBits current.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.Length {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.NumOnBits++
	}
}

// OnBits lists the set bit indices in ascending order.
func (fp *Fingerprint) OnBits() []int {
	out := make([]int, 0, fp.NumOnBits)
	for i, b := range fp.Bits {
		for b != 0 {
			k := bits.TrailingZeros8(b)
			out = append(out, i*8+k)
			b &^= 1 << uint(k)
		}
	}
	return out
}

// MorganFingerprint computes an ECFP-style circular fingerprint. Ordinary
// hydrogens are folded into their neighbour's count; every other atom,
// including isotopic, charged or unbonded hydrogens, starts from an invariant of element, total degree, hydrogen count,
// charge, isotope and ring membership; every iteration up to radius folds in
// the sorted (bond, neighbour) identifiers. All identifiers are folded into
// nBits.
func MorganFingerprint(m *Mol, radius, nBits int) (*Fingerprint, error) {
	if radius < 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, fmt.Sprintf("morgan radius must be non-negative, got %d", radius))
	}
	if nBits <= 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, fmt.Sprintf("morgan length must be positive, got %d", nBits))
	}
	fp := NewFingerprint(FingerprintMorgan, nBits)

	inRing := m.ringAtoms(m.ringBonds())
	var scored []int
	for a := range m.Atoms {
		if !m.foldableH(a) {
			scored = append(scored, a)
		}
	}

	ids := make([]uint64, len(m.Atoms))
	for _, a := range scored {
		at := m.Atoms[a]
		ring := 0
		if inRing[a] {
			ring = 1
		}
		ids[a] = hashInts(at.Z, m.heavyDegree(a)+m.totalHs(a), m.totalHs(a), at.Charge, at.Isotope, ring)
		fp.SetBit(int(ids[a] % uint64(nBits)))
	}

	type env struct {
		code int
		id   uint64
	}
	for r := 1; r <= radius; r++ {
		next := make([]uint64, len(ids))
		for _, a := range scored {
			var envs []env
			for _, bi := range m.adj[a] {
				b := m.Bonds[bi]
				nb := b.Other(a)
				if m.foldableH(nb) {
					continue
				}
				envs = append(envs, env{bondCode(b), ids[nb]})
			}
			sort.Slice(envs, func(i, j int) bool {
				if envs[i].code != envs[j].code {
					return envs[i].code < envs[j].code
				}
				return envs[i].id < envs[j].id
			})
			d := xxhash.New()
			writeUint64(d, uint64(r))
			writeUint64(d, ids[a])
			for _, e := range envs {
				writeUint64(d, uint64(e.code))
				writeUint64(d, e.id)
			}
			next[a] = d.Sum64()
			fp.SetBit(int(next[a] % uint64(nBits)))
		}
		ids = next
	}
	return fp, nil
}

func hashInts(vals ...int) uint64 {
	d := xxhash.New()
	for _, v := range vals {
		writeUint64(d, uint64(int64(v)))
	}
	return d.Sum64()
}

func writeUint64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = d.Write(buf[:])
}
