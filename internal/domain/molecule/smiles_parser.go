package molecule

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports why a SMILES string was rejected. Pos is the byte
// offset of the offending token, or -1 for whole-molecule problems such as
// valence or kekulization failures.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	if e.Pos < 0 {
		return "smiles: " + e.Msg
	}
	return fmt.Sprintf("smiles: %s at position %d", e.Msg, e.Pos)
}

func parseErrorf(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ParseSMILES parses s and sanitizes the result: aromatic input is
// kekulized, implicit hydrogens are assigned, valences are checked and
// aromaticity is re-perceived. Anything after the first whitespace is a
// title and ignored.
func ParseSMILES(s string) (*Mol, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil, &ParseError{Pos: -1, Msg: "empty input"}
	}

	p := &smilesParser{src: s, mol: &Mol{}, prev: -1, rings: map[int]ringOpen{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if err := p.mol.sanitize(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

type ringOpen struct {
	atom int
	bond byte
	pos  int
}

type smilesParser struct {
	src string
	pos int
	mol *Mol

	prev        int
	pendingBond byte
	branches    []int
	rings       map[int]ringOpen
}

func isBondChar(c byte) bool {
	switch c {
	case '-', '=', '#', '$', ':', '/', '\\':
		return true
	}
	return false
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return parseErrorf(p.pos, "branch without a preceding atom")
			}
			if p.pendingBond != 0 {
				return parseErrorf(p.pos, "bond symbol before branch")
			}
			if p.src[p.pos-1] == '(' {
				return parseErrorf(p.pos, "branch must start with an atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++

		case c == ')':
			if len(p.branches) == 0 {
				return parseErrorf(p.pos, "unmatched ')'")
			}
			if p.pendingBond != 0 {
				return parseErrorf(p.pos, "dangling bond")
			}
			if p.src[p.pos-1] == '(' {
				return parseErrorf(p.pos, "empty branch")
			}
			if p.prev < 0 {
				return parseErrorf(p.pos, "unexpected ')' after '.'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++

		case isBondChar(c):
			if p.prev < 0 {
				return parseErrorf(p.pos, "bond without a preceding atom")
			}
			if p.pendingBond != 0 {
				return parseErrorf(p.pos, "consecutive bond symbols")
			}
			p.pendingBond = c
			p.pos++

		case c == '.':
			if p.prev < 0 || p.pendingBond != 0 {
				return parseErrorf(p.pos, "unexpected '.'")
			}
			p.prev = -1
			p.pos++

		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.parseRingBond(); err != nil {
				return err
			}

		case c == '[':
			a, err := p.parseBracketAtom()
			if err != nil {
				return err
			}
			p.attach(a)

		default:
			a, err := p.parseOrganicAtom()
			if err != nil {
				return err
			}
			p.attach(a)
		}
	}

	if p.pendingBond != 0 {
		return parseErrorf(len(p.src), "dangling bond")
	}
	if p.prev < 0 && len(p.mol.Atoms) > 0 {
		return parseErrorf(len(p.src), "trailing '.'")
	}
	if len(p.branches) > 0 {
		return parseErrorf(len(p.src), "unclosed branch")
	}
	if len(p.rings) > 0 {
		first := -1
		for num, open := range p.rings {
			if first < 0 || open.pos < p.rings[first].pos {
				first = num
			}
		}
		return parseErrorf(p.rings[first].pos, "unclosed ring %d", first)
	}
	if len(p.mol.Atoms) == 0 {
		return parseErrorf(0, "no atoms")
	}
	return nil
}

func (p *smilesParser) attach(a Atom) {
	idx := p.mol.addAtom(a)
	if p.prev >= 0 {
		order, aromatic := p.bondFor(p.prev, idx, p.pendingBond)
		p.mol.addBond(p.prev, idx, order, aromatic)
	}
	p.prev = idx
	p.pendingBond = 0
}

func (p *smilesParser) bondFor(a, b int, c byte) (BondOrder, bool) {
	switch c {
	case '=':
		return BondDouble, false
	case '#':
		return BondTriple, false
	case '$':
		return BondQuadruple, false
	case ':':
		return BondAromatic, true
	case 0:
		if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
			return BondAromatic, true
		}
	}
	return BondSingle, false
}

func (p *smilesParser) parseRingBond() error {
	start := p.pos
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return parseErrorf(start, "malformed ring number")
		}
		num = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}
	if p.prev < 0 {
		return parseErrorf(start, "ring bond without a preceding atom")
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpen{atom: p.prev, bond: p.pendingBond, pos: start}
		p.pendingBond = 0
		return nil
	}

	bond := open.bond
	if p.pendingBond != 0 {
		if bond != 0 && bond != p.pendingBond && !(isDirectional(bond) && isDirectional(p.pendingBond)) {
			return parseErrorf(start, "conflicting bond symbols for ring %d", num)
		}
		bond = p.pendingBond
	}
	if open.atom == p.prev {
		return parseErrorf(start, "ring %d closes on its own atom", num)
	}
	if p.mol.bondBetween(open.atom, p.prev) >= 0 {
		return parseErrorf(start, "ring %d duplicates an existing bond", num)
	}
	order, aromatic := p.bondFor(open.atom, p.prev, bond)
	p.mol.addBond(open.atom, p.prev, order, aromatic)
	delete(p.rings, num)
	p.pendingBond = 0
	return nil
}

func isDirectional(c byte) bool { return c == '/' || c == '\\' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *smilesParser) parseOrganicAtom() (Atom, error) {
	start := p.pos
	c := p.src[p.pos]
	var sym string
	aromatic := false

	switch c {
	case 'B', 'C':
		sym = string(c)
		if p.pos+1 < len(p.src) {
			if c == 'B' && p.src[p.pos+1] == 'r' {
				sym = "Br"
			} else if c == 'C' && p.src[p.pos+1] == 'l' {
				sym = "Cl"
			}
		}
	case 'N', 'O', 'P', 'S', 'F', 'I', '*':
		sym = string(c)
	case 'b', 'c', 'n', 'o', 'p', 's':
		sym = strings.ToUpper(string(c))
		aromatic = true
	default:
		return Atom{}, parseErrorf(start, "unexpected character %q", c)
	}
	p.pos += len(sym)

	e, _ := lookupElement(sym)
	return Atom{Symbol: e.Symbol, Z: e.Z, Aromatic: aromatic}, nil
}

func (p *smilesParser) parseBracketAtom() (Atom, error) {
	start := p.pos
	p.pos++ // '['

	a := Atom{Bracket: true}
	a.Isotope = p.readInt()

	sym, aromatic, err := p.readBracketSymbol()
	if err != nil {
		return Atom{}, err
	}
	e, _ := lookupElement(sym)
	a.Symbol, a.Z, a.Aromatic = e.Symbol, e.Z, aromatic

	p.skipChirality()

	if p.peek() == 'H' {
		p.pos++
		a.HCount = 1
		if isDigit(p.peek()) {
			a.HCount = p.readInt()
		}
	}

	switch p.peek() {
	case '+', '-':
		sign := 1
		if p.peek() == '-' {
			sign = -1
		}
		ch := p.peek()
		p.pos++
		magnitude := 1
		if isDigit(p.peek()) {
			magnitude = p.readInt()
		} else {
			for p.peek() == ch {
				magnitude++
				p.pos++
			}
		}
		a.Charge = sign * magnitude
	}

	if p.peek() == ':' {
		p.pos++
		if !isDigit(p.peek()) {
			return Atom{}, parseErrorf(p.pos, "malformed atom class")
		}
		a.Class = p.readInt()
	}

	if p.peek() != ']' {
		if p.pos >= len(p.src) {
			return Atom{}, parseErrorf(start, "unclosed bracket atom")
		}
		return Atom{}, parseErrorf(p.pos, "unexpected character %q in bracket atom", p.src[p.pos])
	}
	p.pos++
	return a, nil
}

func (p *smilesParser) readBracketSymbol() (string, bool, error) {
	start := p.pos
	if p.pos >= len(p.src) {
		return "", false, parseErrorf(start, "unclosed bracket atom")
	}
	c := p.src[p.pos]
	switch {
	case c == '*':
		p.pos++
		return "*", false, nil

	case c >= 'a' && c <= 'z':
		for _, two := range []string{"se", "as", "te"} {
			if strings.HasPrefix(p.src[p.pos:], two) {
				p.pos += 2
				return strings.ToUpper(two[:1]) + two[1:], true, nil
			}
		}
		sym := strings.ToUpper(string(c))
		if e, ok := lookupElement(sym); ok && e.AromaticOK {
			p.pos++
			return sym, true, nil
		}
		return "", false, parseErrorf(start, "invalid aromatic symbol %q", c)

	case c >= 'A' && c <= 'Z':
		if p.pos+1 < len(p.src) {
			n := p.src[p.pos+1]
			if n >= 'a' && n <= 'z' {
				if _, ok := lookupElement(string([]byte{c, n})); ok {
					p.pos += 2
					return string([]byte{c, n}), false, nil
				}
			}
		}
		if _, ok := lookupElement(string(c)); ok {
			p.pos++
			return string(c), false, nil
		}
		return "", false, parseErrorf(start, "unknown element")
	}
	return "", false, parseErrorf(start, "unexpected character %q in bracket atom", c)
}

// skipChirality consumes @, @@ and the @TH1/@AL2/@SP3/@TB5/@OH12 forms.
// Stereo is accepted but not represented.
func (p *smilesParser) skipChirality() {
	if p.peek() != '@' {
		return
	}
	p.pos++
	if p.peek() == '@' {
		p.pos++
		return
	}
	for _, class := range []string{"TH", "AL", "SP", "TB", "OH"} {
		if strings.HasPrefix(p.src[p.pos:], class) {
			p.pos += len(class)
			p.readInt()
			return
		}
	}
}

func (p *smilesParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *smilesParser) readInt() int {
	n := 0
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		n = n*10 + int(p.src[p.pos]-'0')
		p.pos++
	}
	return n
}
