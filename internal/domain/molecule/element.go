package molecule

// element describes the properties of a chemical element the toolkit needs.
type element struct {
	Symbol string
	Z      int
	// Valences lists the allowed neutral valences in ascending order. Empty
	// means the element carries no valence model and is never checked.
	// Neutral nitrogen is trivalent only; nitro groups must be written in
	// charge-separated form.
	Valences []int
	// Organic reports whether the symbol may appear outside brackets.
	Organic bool
	// AromaticOK reports whether a lowercase form exists in SMILES.
	AromaticOK bool
	// CovalentRadius in ångström, used for force-field rest lengths.
	CovalentRadius float64
}

// elements is indexed by symbol. Radii follow Cordero et al. (2008).
var elements = map[string]*element{
	"*":  {Symbol: "*", Z: 0, Organic: true, AromaticOK: true, CovalentRadius: 0.75},
	"H":  {Symbol: "H", Z: 1, Valences: []int{1}, CovalentRadius: 0.31},
	"He": {Symbol: "He", Z: 2, Valences: []int{0}, CovalentRadius: 0.28},
	"Li": {Symbol: "Li", Z: 3, Valences: []int{1}, CovalentRadius: 1.28},
	"Be": {Symbol: "Be", Z: 4, Valences: []int{2}, CovalentRadius: 0.96},
	"B":  {Symbol: "B", Z: 5, Valences: []int{3}, Organic: true, AromaticOK: true, CovalentRadius: 0.84},
	"C":  {Symbol: "C", Z: 6, Valences: []int{4}, Organic: true, AromaticOK: true, CovalentRadius: 0.76},
	"N":  {Symbol: "N", Z: 7, Valences: []int{3}, Organic: true, AromaticOK: true, CovalentRadius: 0.71},
	"O":  {Symbol: "O", Z: 8, Valences: []int{2}, Organic: true, AromaticOK: true, CovalentRadius: 0.66},
	"F":  {Symbol: "F", Z: 9, Valences: []int{1}, Organic: true, CovalentRadius: 0.57},
	"Ne": {Symbol: "Ne", Z: 10, Valences: []int{0}, CovalentRadius: 0.58},
	"Na": {Symbol: "Na", Z: 11, Valences: []int{1}, CovalentRadius: 1.66},
	"Mg": {Symbol: "Mg", Z: 12, Valences: []int{2}, CovalentRadius: 1.41},
	"Al": {Symbol: "Al", Z: 13, Valences: []int{3}, CovalentRadius: 1.21},
	"Si": {Symbol: "Si", Z: 14, Valences: []int{4}, CovalentRadius: 1.11},
	"P":  {Symbol: "P", Z: 15, Valences: []int{3, 5, 7}, Organic: true, AromaticOK: true, CovalentRadius: 1.07},
	"S":  {Symbol: "S", Z: 16, Valences: []int{2, 4, 6}, Organic: true, AromaticOK: true, CovalentRadius: 1.05},
	"Cl": {Symbol: "Cl", Z: 17, Valences: []int{1}, Organic: true, CovalentRadius: 1.02},
	"Ar": {Symbol: "Ar", Z: 18, Valences: []int{0}, CovalentRadius: 1.06},
	"K":  {Symbol: "K", Z: 19, Valences: []int{1}, CovalentRadius: 2.03},
	"Ca": {Symbol: "Ca", Z: 20, Valences: []int{2}, CovalentRadius: 1.76},
	"Ti": {Symbol: "Ti", Z: 22, CovalentRadius: 1.60},
	"Cr": {Symbol: "Cr", Z: 24, CovalentRadius: 1.39},
	"Mn": {Symbol: "Mn", Z: 25, CovalentRadius: 1.39},
	"Fe": {Symbol: "Fe", Z: 26, CovalentRadius: 1.32},
	"Co": {Symbol: "Co", Z: 27, CovalentRadius: 1.26},
	"Ni": {Symbol: "Ni", Z: 28, CovalentRadius: 1.24},
	"Cu": {Symbol: "Cu", Z: 29, CovalentRadius: 1.32},
	"Zn": {Symbol: "Zn", Z: 30, Valences: []int{2}, CovalentRadius: 1.22},
	"Ga": {Symbol: "Ga", Z: 31, Valences: []int{3}, CovalentRadius: 1.22},
	"Ge": {Symbol: "Ge", Z: 32, Valences: []int{4}, CovalentRadius: 1.20},
	"As": {Symbol: "As", Z: 33, Valences: []int{3, 5}, AromaticOK: true, CovalentRadius: 1.19},
	"Se": {Symbol: "Se", Z: 34, Valences: []int{2, 4, 6}, AromaticOK: true, CovalentRadius: 1.20},
	"Br": {Symbol: "Br", Z: 35, Valences: []int{1}, Organic: true, CovalentRadius: 1.20},
	"Kr": {Symbol: "Kr", Z: 36, Valences: []int{0}, CovalentRadius: 1.16},
	"Rb": {Symbol: "Rb", Z: 37, Valences: []int{1}, CovalentRadius: 2.20},
	"Sr": {Symbol: "Sr", Z: 38, Valences: []int{2}, CovalentRadius: 1.95},
	"Pd": {Symbol: "Pd", Z: 46, CovalentRadius: 1.39},
	"Ag": {Symbol: "Ag", Z: 47, CovalentRadius: 1.45},
	"Sn": {Symbol: "Sn", Z: 50, Valences: []int{2, 4}, CovalentRadius: 1.39},
	"Sb": {Symbol: "Sb", Z: 51, Valences: []int{3, 5}, CovalentRadius: 1.39},
	"Te": {Symbol: "Te", Z: 52, Valences: []int{2, 4, 6}, AromaticOK: true, CovalentRadius: 1.38},
	"I":  {Symbol: "I", Z: 53, Valences: []int{1, 3, 5}, Organic: true, CovalentRadius: 1.39},
	"Xe": {Symbol: "Xe", Z: 54, Valences: []int{0, 2, 4, 6}, CovalentRadius: 1.40},
	"Cs": {Symbol: "Cs", Z: 55, Valences: []int{1}, CovalentRadius: 2.44},
	"Ba": {Symbol: "Ba", Z: 56, Valences: []int{2}, CovalentRadius: 2.15},
	"Pt": {Symbol: "Pt", Z: 78, CovalentRadius: 1.36},
	"Au": {Symbol: "Au", Z: 79, CovalentRadius: 1.36},
	"Hg": {Symbol: "Hg", Z: 80, CovalentRadius: 1.32},
	"Pb": {Symbol: "Pb", Z: 82, Valences: []int{2, 4}, CovalentRadius: 1.46},
	"Bi": {Symbol: "Bi", Z: 83, Valences: []int{3, 5}, CovalentRadius: 1.48},
}

var elementsByZ = func() map[int]*element {
	m := make(map[int]*element, len(elements))
	for _, e := range elements {
		m[e.Z] = e
	}
	return m
}()

func lookupElement(symbol string) (*element, bool) {
	e, ok := elements[symbol]
	return e, ok
}

// allowedValences returns the valence list for an atom with the given charge
// using the isoelectronic neighbour in the periodic table (N+ behaves like C,
// O- like F and so on). A nil result means the valence is unchecked.
func allowedValences(z, charge int) []int {
	if charge == 0 {
		if e, ok := elementsByZ[z]; ok {
			return e.Valences
		}
		return nil
	}
	iso := z - charge
	// Only shift within the p-block rows the table models reliably.
	if z < 5 || z > 53 || iso < 5 || iso > 53 {
		return nil
	}
	e, ok := elementsByZ[iso]
	if !ok || len(e.Valences) == 0 || e.Valences[len(e.Valences)-1] == 0 {
		return nil
	}
	return e.Valences
}

// smallestValence returns the first allowed valence ≥ used, or -1 if used
// exceeds every entry.
func smallestValence(valences []int, used int) int {
	for _, v := range valences {
		if v >= used {
			return v
		}
	}
	return -1
}
