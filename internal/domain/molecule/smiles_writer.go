package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// CanonicalSMILES writes m as canonical SMILES with aromatic atoms in
// lowercase. Equivalent graphs always produce the same string.
func (m *Mol) CanonicalSMILES() string {
	if len(m.Atoms) == 0 {
		return ""
	}
	w := &smilesWriter{
		mol:    m,
		ranks:  m.canonicalRanks(),
		digits: map[int]int{},
	}
	return w.write()
}

type smilesWriter struct {
	mol   *Mol
	ranks []int

	visited    []bool
	treeBond   []bool
	children   [][]int
	ringOpens  [][]int // bond indices opened at an atom
	ringCloses [][]int // bond indices closed at an atom

	digits map[int]int // bond -> ring digit
	inUse  map[int]bool
	sb     strings.Builder
}

func (w *smilesWriter) write() string {
	m := w.mol
	n := len(m.Atoms)
	w.visited = make([]bool, n)
	w.treeBond = make([]bool, len(m.Bonds))
	w.children = make([][]int, n)
	w.ringOpens = make([][]int, n)
	w.ringCloses = make([][]int, n)
	w.inUse = map[int]bool{}

	type root struct{ atom, rank int }
	var roots []root
	for _, comp := range m.components() {
		best := comp[0]
		for _, a := range comp {
			if w.ranks[a] < w.ranks[best] {
				best = a
			}
		}
		roots = append(roots, root{best, w.ranks[best]})
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].rank < roots[j].rank })

	for i, r := range roots {
		w.plan(r.atom, -1)
		if i > 0 {
			w.sb.WriteByte('.')
		}
		w.emit(r.atom)
	}
	return w.sb.String()
}

// plan performs the DFS that fixes the tree edges and ring closures.
func (w *smilesWriter) plan(a, viaBond int) {
	w.visited[a] = true
	for _, bi := range w.sortedBonds(a) {
		if bi == viaBond || w.treeBond[bi] || w.isRingBond(bi) {
			continue
		}
		nb := w.mol.Bonds[bi].Other(a)
		if w.visited[nb] {
			w.ringOpens[nb] = append(w.ringOpens[nb], bi)
			w.ringCloses[a] = append(w.ringCloses[a], bi)
			continue
		}
		w.treeBond[bi] = true
		w.children[a] = append(w.children[a], bi)
		w.plan(nb, bi)
	}
}

func (w *smilesWriter) isRingBond(bi int) bool {
	b := w.mol.Bonds[bi]
	for _, x := range w.ringCloses[b.Begin] {
		if x == bi {
			return true
		}
	}
	for _, x := range w.ringCloses[b.End] {
		if x == bi {
			return true
		}
	}
	return false
}

// sortedBonds lists a's bonds by the rank of the atom at the other end.
func (w *smilesWriter) sortedBonds(a int) []int {
	bonds := append([]int(nil), w.mol.adj[a]...)
	sort.Slice(bonds, func(i, j int) bool {
		return w.ranks[w.mol.Bonds[bonds[i]].Other(a)] < w.ranks[w.mol.Bonds[bonds[j]].Other(a)]
	})
	return bonds
}

func (w *smilesWriter) emit(a int) {
	m := w.mol
	w.sb.WriteString(w.atomToken(a))

	closing := map[int]bool{}
	for _, bi := range w.ringCloses[a] {
		d := w.digits[bi]
		w.sb.WriteString(ringLabel(d))
		closing[d] = true
	}
	for _, bi := range w.ringOpens[a] {
		d := w.nextDigit(closing)
		w.digits[bi] = d
		w.inUse[d] = true
		b := m.Bonds[bi]
		w.sb.WriteString(w.bondSymbol(b))
		w.sb.WriteString(ringLabel(d))
	}
	for d := range closing {
		delete(w.inUse, d)
	}

	for i, bi := range w.children[a] {
		b := m.Bonds[bi]
		last := i == len(w.children[a])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(b))
		w.emit(b.Other(a))
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) nextDigit(closing map[int]bool) int {
	for d := 1; ; d++ {
		if !w.inUse[d] && !closing[d] {
			return d
		}
	}
}

func ringLabel(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondSymbol(b Bond) string {
	if b.Aromatic {
		return ""
	}
	switch b.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondQuadruple:
		return "$"
	}
	if w.mol.Atoms[b.Begin].Aromatic && w.mol.Atoms[b.End].Aromatic {
		return "-"
	}
	return ""
}

func (w *smilesWriter) atomToken(a int) string {
	at := w.mol.Atoms[a]
	sym := at.Symbol
	if at.Aromatic {
		sym = strings.ToLower(sym)
	}
	if !w.needsBracket(a) {
		return sym
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if at.Isotope > 0 {
		sb.WriteString(strconv.Itoa(at.Isotope))
	}
	sb.WriteString(sym)
	if at.HCount > 0 {
		sb.WriteByte('H')
		if at.HCount > 1 {
			sb.WriteString(strconv.Itoa(at.HCount))
		}
	}
	switch {
	case at.Charge == 1:
		sb.WriteByte('+')
	case at.Charge == -1:
		sb.WriteByte('-')
	case at.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(at.Charge))
	case at.Charge < -1:
		sb.WriteString("-" + strconv.Itoa(-at.Charge))
	}
	if at.Class > 0 {
		sb.WriteString(":" + strconv.Itoa(at.Class))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (w *smilesWriter) needsBracket(a int) bool {
	at := w.mol.Atoms[a]
	e, ok := lookupElement(at.Symbol)
	if !ok || !e.Organic {
		return true
	}
	if at.Aromatic {
		switch at.Symbol {
		case "B", "C", "N", "O", "P", "S", "*":
		default:
			return true
		}
	}
	if at.Isotope != 0 || at.Charge != 0 || at.Class != 0 {
		return true
	}
	return at.HCount != w.mol.inferredHs(a)
}

// inferredHs is the hydrogen count a reader assumes for an unbracketed atom.
func (m *Mol) inferredHs(a int) int {
	at := m.Atoms[a]
	if at.Z == 0 {
		return 0
	}
	vals := allowedValences(at.Z, 0)
	if !at.Aromatic {
		v := smallestValence(vals, m.bondValence(a))
		if v < 0 {
			return 0
		}
		return v - m.bondValence(a)
	}
	s := 0
	for _, bi := range m.adj[a] {
		b := m.Bonds[bi]
		if b.Aromatic {
			s++
		} else {
			s += b.Order.valence()
		}
	}
	v := smallestValence(vals, s)
	if v < 0 {
		return 0
	}
	if free := v - s; free >= 1 {
		return free - 1
	}
	return 0
}
