package molecule

import "sort"

// bondCode distinguishes aromatic bonds from their Kekulé order.
func bondCode(b Bond) int {
	if b.Aromatic {
		return int(BondAromatic)
	}
	return int(b.Order)
}

type atomInvariant struct {
	heavyDegree, z, isotope, charge, hs int
	aromatic, inRing                    bool
}

func (x atomInvariant) less(y atomInvariant) bool {
	switch {
	case x.heavyDegree != y.heavyDegree:
		return x.heavyDegree < y.heavyDegree
	case x.z != y.z:
		return x.z < y.z
	case x.isotope != y.isotope:
		return x.isotope < y.isotope
	case x.charge != y.charge:
		return x.charge < y.charge
	case x.hs != y.hs:
		return x.hs < y.hs
	case x.aromatic != y.aromatic:
		return !x.aromatic
	case x.inRing != y.inRing:
		return !x.inRing
	}
	return false
}

// canonicalRanks assigns every atom a distinct rank that depends only on the
// molecular graph, never on input atom order (up to graph automorphism).
func (m *Mol) canonicalRanks() []int {
	n := len(m.Atoms)
	if n == 0 {
		return nil
	}
	inRing := m.ringAtoms(m.ringBonds())
	inv := make([]atomInvariant, n)
	for a, at := range m.Atoms {
		inv[a] = atomInvariant{
			heavyDegree: m.heavyDegree(a),
			z:           at.Z,
			isotope:     at.Isotope,
			charge:      at.Charge,
			hs:          m.totalHs(a),
			aromatic:    at.Aromatic,
			inRing:      inRing[a],
		}
	}
	ranks := denseRanks(n, func(i, j int) bool { return inv[i].less(inv[j]) })
	ranks = m.refineRanks(ranks)

	for {
		tied := lowestTiedRank(ranks)
		if tied < 0 {
			return ranks
		}
		chosen := -1
		for a, r := range ranks {
			r2 := r * 2
			if r == tied && chosen < 0 {
				chosen = a
				r2--
			}
			ranks[a] = r2
		}
		ranks = m.refineRanks(ranks)
	}
}

// refineRanks splits rank classes by the sorted (rank, bond) multiset of each
// atom's neighbours until the partition stops changing.
func (m *Mol) refineRanks(ranks []int) []int {
	n := len(ranks)
	classes := countClasses(ranks)
	for {
		keys := make([][]int, n)
		for a := 0; a < n; a++ {
			nb := make([]int, 0, len(m.adj[a]))
			for _, bi := range m.adj[a] {
				b := m.Bonds[bi]
				nb = append(nb, ranks[b.Other(a)]*8+bondCode(b))
			}
			sort.Ints(nb)
			keys[a] = append([]int{ranks[a]}, nb...)
		}
		next := denseRanks(n, func(i, j int) bool { return lessInts(keys[i], keys[j]) })
		c := countClasses(next)
		ranks = next
		if c == classes {
			return ranks
		}
		classes = c
	}
}

// denseRanks orders 0..n-1 with less and gives equal elements equal ranks.
func denseRanks(n int, less func(i, j int) bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	ranks := make([]int, n)
	r := 0
	for k := 1; k < n; k++ {
		if less(idx[k-1], idx[k]) {
			r++
		}
		ranks[idx[k]] = r
	}
	return ranks
}

func countClasses(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// lowestTiedRank returns the smallest rank shared by two or more atoms, or -1.
func lowestTiedRank(ranks []int) int {
	count := map[int]int{}
	for _, r := range ranks {
		count[r]++
	}
	best := -1
	for r, c := range count {
		if c > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

func lessInts(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
