package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// ringBonds reports, per bond, whether it lies on a cycle (is not a bridge).
func (m *Mol) ringBonds() []bool {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridge := make([]bool, len(m.Bonds))
	t := 0

	var visit func(u, parentBond int)
	visit = func(u, parentBond int) {
		disc[u], low[u] = t, t
		t++
		for _, bi := range m.adj[u] {
			if bi == parentBond {
				continue
			}
			v := m.Bonds[bi].Other(u)
			if disc[v] == -1 {
				visit(v, bi)
				low[u] = min(low[u], low[v])
				if low[v] > disc[u] {
					bridge[bi] = true
				}
			} else {
				low[u] = min(low[u], disc[v])
			}
		}
	}
	for i := range disc {
		if disc[i] == -1 {
			visit(i, -1)
		}
	}

	ring := make([]bool, len(m.Bonds))
	for i := range ring {
		ring[i] = !bridge[i]
	}
	return ring
}

// ringAtoms derives atom ring membership from ringBonds output.
func (m *Mol) ringAtoms(ringBond []bool) []bool {
	in := make([]bool, len(m.Atoms))
	for bi, r := range ringBond {
		if r {
			in[m.Bonds[bi].Begin] = true
			in[m.Bonds[bi].End] = true
		}
	}
	return in
}

// cycle is a ring given as its atom and bond sets.
type cycle struct {
	atoms []int
	bonds []int
}

func (c cycle) key() string {
	b := append([]int(nil), c.bonds...)
	sort.Ints(b)
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// maxEnvelopeSize bounds the fused-pair cycles considered for aromaticity.
const maxEnvelopeSize = 24

// candidateCycles returns the shortest cycle through every ring bond plus the
// envelope of each pair of those cycles fused along exactly one bond. The
// envelopes let aromaticity span systems such as azulene whose individual
// rings are not 4n+2.
func (m *Mol) candidateCycles(ringBond []bool) []cycle {
	seen := map[string]bool{}
	var base []cycle
	for bi, r := range ringBond {
		if !r {
			continue
		}
		c, ok := m.shortestCycleThrough(bi, ringBond)
		if !ok {
			continue
		}
		k := c.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		base = append(base, c)
	}

	out := append([]cycle(nil), base...)
	for i := 0; i < len(base); i++ {
		for j := i + 1; j < len(base); j++ {
			env, ok := fuse(base[i], base[j], m)
			if !ok || len(env.atoms) > maxEnvelopeSize {
				continue
			}
			k := env.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, env)
		}
	}
	return out
}

// shortestCycleThrough runs a BFS between the ends of bond bi over ring
// bonds other than bi itself.
func (m *Mol) shortestCycleThrough(bi int, ringBond []bool) (cycle, bool) {
	src, dst := m.Bonds[bi].Begin, m.Bonds[bi].End
	prevBond := make([]int, len(m.Atoms))
	for i := range prevBond {
		prevBond[i] = -2
	}
	prevBond[src] = -1
	queue := []int{src}
	for len(queue) > 0 && prevBond[dst] == -2 {
		u := queue[0]
		queue = queue[1:]
		for _, b := range m.adj[u] {
			if b == bi || !ringBond[b] {
				continue
			}
			v := m.Bonds[b].Other(u)
			if prevBond[v] != -2 {
				continue
			}
			prevBond[v] = b
			queue = append(queue, v)
		}
	}
	if prevBond[dst] == -2 {
		return cycle{}, false
	}

	c := cycle{bonds: []int{bi}}
	for a := dst; a != src; {
		c.atoms = append(c.atoms, a)
		b := prevBond[a]
		c.bonds = append(c.bonds, b)
		a = m.Bonds[b].Other(a)
	}
	c.atoms = append(c.atoms, src)
	return c, true
}

// fuse merges two cycles that share exactly one bond into their envelope.
func fuse(a, b cycle, m *Mol) (cycle, bool) {
	inA := map[int]bool{}
	for _, x := range a.bonds {
		inA[x] = true
	}
	shared := -1
	for _, x := range b.bonds {
		if inA[x] {
			if shared >= 0 {
				return cycle{}, false
			}
			shared = x
		}
	}
	if shared < 0 {
		return cycle{}, false
	}

	var env cycle
	atoms := map[int]bool{}
	for _, c := range []cycle{a, b} {
		for _, x := range c.bonds {
			if x == shared {
				continue
			}
			env.bonds = append(env.bonds, x)
			atoms[m.Bonds[x].Begin] = true
			atoms[m.Bonds[x].End] = true
		}
	}
	// A simple envelope has as many atoms as bonds.
	if len(atoms) != len(env.bonds) {
		return cycle{}, false
	}
	for x := range atoms {
		env.atoms = append(env.atoms, x)
	}
	sort.Ints(env.atoms)
	return env, true
}
