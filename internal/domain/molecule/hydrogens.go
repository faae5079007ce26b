package molecule

// AddHs returns a copy of m in which every implicit hydrogen is an explicit
// atom. Existing coordinates are kept and new hydrogens are placed 1.0 Å
// from their parent.
func AddHs(m *Mol) *Mol {
	out := m.Clone()
	heavy := len(out.Atoms)
	for a := 0; a < heavy; a++ {
		n := out.Atoms[a].HCount
		out.Atoms[a].HCount = 0
		for k := 0; k < n; k++ {
			h := out.addAtom(Atom{Symbol: "H", Z: 1, Bracket: true})
			out.addBond(a, h, BondSingle, false)
			if out.Coords != nil {
				p := out.Coords[a]
				off := hydrogenOffsets[k%len(hydrogenOffsets)]
				out.Coords = append(out.Coords, Point3{p[0] + off[0], p[1] + off[1], p[2] + off[2]})
			}
		}
	}
	return out
}

var hydrogenOffsets = []Point3{
	{0.63, 0.63, 0.63},
	{-0.63, -0.63, 0.63},
	{-0.63, 0.63, -0.63},
	{0.63, -0.63, -0.63},
}

// RemoveHs returns a copy of m with ordinary explicit hydrogens folded back
// into their heavy neighbour's count. Isotopic or charged hydrogens, H2 and
// bridging hydrogens are kept.
func RemoveHs(m *Mol) *Mol {
	out := m.Clone()
	drop := make([]bool, len(out.Atoms))
	for a := range out.Atoms {
		if !out.foldableH(a) {
			continue
		}
		drop[a] = true
		out.Atoms[out.neighbors(a)[0]].HCount++
	}

	remap := make([]int, len(out.Atoms))
	var atoms []Atom
	var coords []Point3
	for a, at := range out.Atoms {
		if drop[a] {
			remap[a] = -1
			continue
		}
		remap[a] = len(atoms)
		atoms = append(atoms, at)
		if out.Coords != nil {
			coords = append(coords, out.Coords[a])
		}
	}
	var bonds []Bond
	for _, b := range out.Bonds {
		if remap[b.Begin] < 0 || remap[b.End] < 0 {
			continue
		}
		b.Begin, b.End = remap[b.Begin], remap[b.End]
		bonds = append(bonds, b)
	}
	out.Atoms, out.Bonds, out.Coords = atoms, bonds, coords
	out.rebuildAdjacency()
	return out
}

// foldableH reports whether a is an ordinary hydrogen that can live as a
// count on its single heavy neighbour.
func (m *Mol) foldableH(a int) bool {
	at := m.Atoms[a]
	if at.Z != 1 || at.Isotope != 0 || at.Charge != 0 || m.degree(a) != 1 {
		return false
	}
	return m.Atoms[m.neighbors(a)[0]].Z != 1
}
