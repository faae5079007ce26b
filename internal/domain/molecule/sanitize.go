package molecule

// maxKekuleSteps bounds the matching search for pathological inputs.
const maxKekuleSteps = 200000

// sanitize turns a freshly parsed graph into a consistent molecule.
func (m *Mol) sanitize() error {
	ring := m.ringBonds()
	inRing := m.ringAtoms(ring)
	for a, at := range m.Atoms {
		if at.Aromatic && !inRing[a] {
			return &ParseError{Pos: -1, Msg: "non-ring atom marked aromatic"}
		}
	}
	// An implicit bond joining two aromatic rings is single.
	for bi := range m.Bonds {
		if m.Bonds[bi].Order == BondAromatic && !ring[bi] {
			m.Bonds[bi].Order = BondSingle
			m.Bonds[bi].Aromatic = false
		}
	}
	if err := m.kekulize(); err != nil {
		return err
	}
	if err := m.assignImplicitHydrogens(); err != nil {
		return err
	}
	m.perceiveAromaticity()
	return nil
}

// valencesFor picks the valence list used for atom a.
func (m *Mol) valencesFor(a int) []int {
	at := m.Atoms[a]
	if at.Z == 0 {
		return nil
	}
	return allowedValences(at.Z, at.Charge)
}

// needsPiBond reports whether an atom with aromatic bonds must receive one
// double bond during kekulization, judged from its free valence.
func (m *Mol) needsPiBond(a int) bool {
	at := m.Atoms[a]
	used := m.bondValence(a)
	if at.Bracket {
		used += at.HCount
	}
	vals := m.valencesFor(a)
	if vals == nil {
		return false
	}
	v := smallestValence(vals, used)
	if v < 0 {
		return false
	}
	return v-used >= 1
}

// kekulize replaces every aromatic bond by a single or double bond such that
// each atom needing a π bond gets exactly one.
func (m *Mol) kekulize() error {
	n := len(m.Atoms)
	needs := make([]bool, n)
	hasAromatic := false
	for _, b := range m.Bonds {
		if b.Order != BondAromatic {
			continue
		}
		hasAromatic = true
		needs[b.Begin] = m.needsPiBond(b.Begin)
		needs[b.End] = m.needsPiBond(b.End)
	}
	if !hasAromatic {
		return nil
	}

	mate := make([]int, n)
	for i := range mate {
		mate[i] = -1
	}
	steps := 0
	if !m.matchPi(needs, mate, &steps) {
		return &ParseError{Pos: -1, Msg: "cannot kekulize aromatic system"}
	}

	for bi := range m.Bonds {
		b := &m.Bonds[bi]
		if b.Order != BondAromatic {
			continue
		}
		if mate[b.Begin] == b.End {
			b.Order = BondDouble
		} else {
			b.Order = BondSingle
		}
	}
	return nil
}

// matchPi finds a perfect matching of the needy atoms over aromatic bonds by
// backtracking on the most constrained atom first.
func (m *Mol) matchPi(needs []bool, mate []int, steps *int) bool {
	*steps++
	if *steps > maxKekuleSteps {
		return false
	}

	best := -1
	var bestOpts []int
	for a := range needs {
		if !needs[a] || mate[a] >= 0 {
			continue
		}
		var opts []int
		for _, bi := range m.adj[a] {
			b := m.Bonds[bi]
			if b.Order != BondAromatic {
				continue
			}
			o := b.Other(a)
			if needs[o] && mate[o] < 0 {
				opts = append(opts, o)
			}
		}
		if len(opts) == 0 {
			return false
		}
		if best < 0 || len(opts) < len(bestOpts) {
			best, bestOpts = a, opts
		}
	}
	if best < 0 {
		return true
	}

	for _, o := range bestOpts {
		mate[best], mate[o] = o, best
		if m.matchPi(needs, mate, steps) {
			return true
		}
		mate[best], mate[o] = -1, -1
	}
	return false
}

// assignImplicitHydrogens fills HCount for organic-subset atoms from the
// smallest allowed valence and rejects over-bonded atoms.
func (m *Mol) assignImplicitHydrogens() error {
	for a := range m.Atoms {
		at := &m.Atoms[a]
		used := m.bondValence(a)
		vals := m.valencesFor(a)

		if at.Bracket {
			if vals != nil && used+at.HCount > vals[len(vals)-1] {
				return parseErrorf(-1, "explicit valence %d of %s exceeds the maximum of %d",
					used+at.HCount, at.Symbol, vals[len(vals)-1])
			}
			continue
		}
		if at.Z == 0 {
			at.HCount = 0
			continue
		}
		v := smallestValence(vals, used)
		if v < 0 && len(vals) == 0 {
			continue
		}
		if v < 0 {
			return parseErrorf(-1, "valence %d of %s exceeds the maximum of %d", used, at.Symbol, vals[len(vals)-1])
		}
		at.HCount = v - used
	}
	return nil
}
