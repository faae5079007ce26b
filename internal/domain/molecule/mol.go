// Package molecule is molscout's in-process cheminformatics toolkit. It parses
// and writes SMILES, perceives aromaticity, ranks atoms canonically, manages
// explicit hydrogens, relaxes 3D geometry under a small force field, and
// computes Morgan fingerprints with Tanimoto similarity.
//
// All operations are CPU-bound and synchronous. Mol values are not safe for
// concurrent mutation; every Toolkit method returns a fresh copy.
package molecule

import "fmt"

// BondOrder is the formal order of a bond.
type BondOrder int

const (
	BondSingle    BondOrder = 1
	BondDouble    BondOrder = 2
	BondTriple    BondOrder = 3
	BondQuadruple BondOrder = 4
	// BondAromatic only appears between parsing and kekulization.
	BondAromatic BondOrder = 5
)

// valence returns the bond's contribution to an atom's valence. Aromatic
// bonds count as one until kekulization assigns the π bond.
func (o BondOrder) valence() int {
	if o == BondAromatic {
		return 1
	}
	return int(o)
}

// Atom is a heavy atom (or an explicit hydrogen after AddHs).
type Atom struct {
	Symbol   string
	Z        int
	Isotope  int
	Charge   int
	HCount   int
	Aromatic bool
	Class    int
	// Bracket is set when the atom was written in brackets; its H count is
	// then explicit rather than inferred.
	Bracket bool
}

// Bond joins two atoms by index.
type Bond struct {
	Begin, End int
	Order      BondOrder
	Aromatic   bool
}

// Other returns the atom at the opposite end from a.
func (b Bond) Other(a int) int {
	if b.Begin == a {
		return b.End
	}
	return b.Begin
}

// Point3 is a cartesian coordinate in ångström.
type Point3 [3]float64

// Mol is a molecular graph. Coords is nil until a geometry is embedded.
type Mol struct {
	Atoms  []Atom
	Bonds  []Bond
	Coords []Point3

	adj [][]int // atom -> incident bond indices
}

// NumAtoms returns the atom count including explicit hydrogens.
func (m *Mol) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the bond count.
func (m *Mol) NumBonds() int { return len(m.Bonds) }

// HasCoords reports whether a 3D geometry is attached.
func (m *Mol) HasCoords() bool { return len(m.Coords) == len(m.Atoms) && len(m.Atoms) > 0 }

func (m *Mol) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

func (m *Mol) addBond(begin, end int, order BondOrder, aromatic bool) int {
	m.Bonds = append(m.Bonds, Bond{Begin: begin, End: end, Order: order, Aromatic: aromatic})
	idx := len(m.Bonds) - 1
	m.adj[begin] = append(m.adj[begin], idx)
	m.adj[end] = append(m.adj[end], idx)
	return idx
}

// bondBetween returns the index of the bond joining a and b, or -1.
func (m *Mol) bondBetween(a, b int) int {
	for _, bi := range m.adj[a] {
		if m.Bonds[bi].Other(a) == b {
			return bi
		}
	}
	return -1
}

// degree counts explicit neighbours.
func (m *Mol) degree(a int) int { return len(m.adj[a]) }

// heavyDegree counts neighbours that are not hydrogen.
func (m *Mol) heavyDegree(a int) int {
	n := 0
	for _, bi := range m.adj[a] {
		if m.Atoms[m.Bonds[bi].Other(a)].Z != 1 {
			n++
		}
	}
	return n
}

// totalHs counts implicit and explicit hydrogens on a.
func (m *Mol) totalHs(a int) int {
	n := m.Atoms[a].HCount
	for _, bi := range m.adj[a] {
		if m.Atoms[m.Bonds[bi].Other(a)].Z == 1 {
			n++
		}
	}
	return n
}

// bondValence sums the valence contributions of a's explicit bonds.
func (m *Mol) bondValence(a int) int {
	v := 0
	for _, bi := range m.adj[a] {
		v += m.Bonds[bi].Order.valence()
	}
	return v
}

// neighbors returns the atoms bonded to a.
func (m *Mol) neighbors(a int) []int {
	out := make([]int, len(m.adj[a]))
	for i, bi := range m.adj[a] {
		out[i] = m.Bonds[bi].Other(a)
	}
	return out
}

// Clone returns a deep copy.
func (m *Mol) Clone() *Mol {
	c := &Mol{
		Atoms: append([]Atom(nil), m.Atoms...),
		Bonds: append([]Bond(nil), m.Bonds...),
		adj:   make([][]int, len(m.adj)),
	}
	for i, a := range m.adj {
		c.adj[i] = append([]int(nil), a...)
	}
	if m.Coords != nil {
		c.Coords = append([]Point3(nil), m.Coords...)
	}
	return c
}

// rebuildAdjacency recomputes adj from Bonds.
func (m *Mol) rebuildAdjacency() {
	m.adj = make([][]int, len(m.Atoms))
	for i, b := range m.Bonds {
		m.adj[b.Begin] = append(m.adj[b.Begin], i)
		m.adj[b.End] = append(m.adj[b.End], i)
	}
}

// Formula returns the Hill-order molecular formula, e.g. "C2H6O".
func (m *Mol) Formula() string {
	counts := map[string]int{}
	for i, a := range m.Atoms {
		if a.Z == 0 {
			continue
		}
		counts[a.Symbol]++
		counts["H"] += m.Atoms[i].HCount
	}
	var out string
	emit := func(sym string) {
		n := counts[sym]
		if n == 0 {
			return
		}
		if n == 1 {
			out += sym
		} else {
			out += fmt.Sprintf("%s%d", sym, n)
		}
		delete(counts, sym)
	}
	if counts["C"] > 0 {
		emit("C")
		emit("H")
	}
	for _, sym := range sortedKeys(counts) {
		emit(sym)
	}
	return out
}

// components returns connected components as atom index lists in ascending
// order of their smallest member.
func (m *Mol) components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var comps [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			a := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, a)
			for _, nb := range m.neighbors(a) {
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}
