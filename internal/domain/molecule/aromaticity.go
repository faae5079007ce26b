package molecule

// perceiveAromaticity clears every aromatic flag and sets it again on the
// atoms and bonds of each candidate cycle that satisfies Hückel's 4n+2 rule.
// Bond orders keep their Kekulé form.
func (m *Mol) perceiveAromaticity() {
	for i := range m.Atoms {
		m.Atoms[i].Aromatic = false
	}
	for i := range m.Bonds {
		m.Bonds[i].Aromatic = false
	}

	ring := m.ringBonds()
	pi := make([]int, len(m.Atoms))
	for a := range m.Atoms {
		pi[a] = m.piElectrons(a, ring)
	}

	for _, c := range m.candidateCycles(ring) {
		sum := 0
		ok := true
		for _, a := range c.atoms {
			if pi[a] < 0 {
				ok = false
				break
			}
			sum += pi[a]
		}
		if !ok || sum < 2 || (sum-2)%4 != 0 {
			continue
		}
		for _, a := range c.atoms {
			m.Atoms[a].Aromatic = true
		}
		for _, b := range c.bonds {
			m.Bonds[b].Aromatic = true
		}
	}
}

// piElectrons returns the number of electrons atom a donates to a ring
// π system, or -1 when it cannot take part in one.
func (m *Mol) piElectrons(a int, ring []bool) int {
	at := m.Atoms[a]
	ringDoubles := 0
	exoDouble := -1
	for _, bi := range m.adj[a] {
		b := m.Bonds[bi]
		switch b.Order {
		case BondTriple, BondQuadruple:
			return -1
		case BondDouble:
			if ring[bi] {
				ringDoubles++
			} else {
				exoDouble = b.Other(a)
			}
		}
	}
	if ringDoubles > 1 {
		return -1
	}
	if ringDoubles == 1 {
		if exoDouble >= 0 {
			return -1
		}
		return 1
	}
	if exoDouble >= 0 {
		// Carbonyl-like carbons contribute an empty p orbital.
		if at.Z == 6 {
			switch m.Atoms[exoDouble].Z {
			case 7, 8, 16:
				return 0
			}
		}
		return -1
	}

	conns := m.degree(a) + at.HCount
	switch {
	case (at.Z == 7 || at.Z == 15 || at.Z == 33) && at.Charge == 0 && conns == 3:
		return 2
	case at.Z == 7 && at.Charge == -1 && conns == 2:
		return 2
	case (at.Z == 8 || at.Z == 16 || at.Z == 34 || at.Z == 52) && at.Charge == 0 && conns == 2:
		return 2
	case at.Z == 6 && at.Charge == -1 && conns == 3:
		return 2
	case at.Z == 6 && at.Charge == 1 && conns == 3:
		return 0
	case at.Z == 5 && at.Charge == 0 && conns == 3:
		return 0
	case at.Z == 0:
		return 1
	}
	return -1
}
