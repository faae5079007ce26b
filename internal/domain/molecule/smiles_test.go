package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, smiles string) *Mol {
	t.Helper()
	m, err := ParseSMILES(smiles)
	require.NoError(t, err, smiles)
	return m
}

func canonical(t *testing.T, smiles string) string {
	t.Helper()
	return mustParse(t, smiles).CanonicalSMILES()
}

func TestParseSMILES_Ethanol(t *testing.T) {
	m := mustParse(t, "CCO")
	require.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, 2, m.NumBonds())
	assert.Equal(t, []int{3, 2, 1}, []int{m.Atoms[0].HCount, m.Atoms[1].HCount, m.Atoms[2].HCount})
	assert.Equal(t, "C2H6O", m.Formula())
}

func TestParseSMILES_Valid(t *testing.T) {
	cases := map[string]struct {
		atoms   int
		formula string
	}{
		"benzene kekule":  {6, "C6H6"},
		"benzene":         {6, "C6H6"},
		"ammonium":        {1, "H4N"},
		"cyclopropane":    {3, "C3H6"},
		"percent ring":    {3, "C3H6"},
		"acetic acid":     {4, "C2H4O2"},
		"pyrrole":         {5, "C4H5N"},
		"salt":            {2, "ClNa"},
		"title ignored":   {2, "C2H6"},
		"stereo dropped":  {4, "C4H8"},
		"chiral centre":   {5, "C2H3BrClF"},
		"isotope":         {1, "CH4"},
		"nitro separated": {4, "CH3NO2"},
		"nested branch":   {5, "C5H12"},
	}
	inputs := map[string]string{
		"benzene kekule":  "C1=CC=CC=C1",
		"benzene":         "c1ccccc1",
		"ammonium":        "[NH4+]",
		"cyclopropane":    "C1CC1",
		"percent ring":    "C%12CC%12",
		"acetic acid":     "CC(=O)O",
		"pyrrole":         "c1cc[nH]c1",
		"salt":            "[Na+].[Cl-]",
		"title ignored":   "CC ethane",
		"stereo dropped":  "C/C=C/C",
		"chiral centre":   "F[C@H](Cl)CBr",
		"isotope":         "[13CH4]",
		"nitro separated": "C[N+](=O)[O-]",
		"nested branch":   "CC(C(C)C)C",
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			m := mustParse(t, inputs[name])
			assert.Equal(t, want.atoms, m.NumAtoms())
			assert.Equal(t, want.formula, m.Formula())
		})
	}
}

func TestParseSMILES_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"   ",
		"C1CC",
		"C(C",
		"C)C",
		"C()C",
		"CC=",
		"C==C",
		"Xx",
		"[Xx]",
		"[C",
		"c1cccc1",
		"c",
		"C(C)(C)(C)(C)C",
		"FC(F)(F)(F)F",
		"CN(=O)=O",
		"C1CC11",
		".C",
		"C..C",
		"C.",
		"[Na+].[Cl-].",
		"C((C))",
		"CC((C)C)",
		"C(C.)C",
		"(C)C",
		"not a smiles",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseSMILES(s)
			assert.Error(t, err)
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestParseError_Position(t *testing.T) {
	_, err := ParseSMILES("CC(C")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed branch")
	assert.Contains(t, err.Error(), "position 4")
}

func TestParseSMILES_Aromaticity(t *testing.T) {
	m := mustParse(t, "C1=CC=CC=C1")
	for _, a := range m.Atoms {
		assert.True(t, a.Aromatic)
	}
	for _, b := range m.Bonds {
		assert.True(t, b.Aromatic)
	}

	cyclohexene := mustParse(t, "C1=CCCCC1")
	for _, a := range cyclohexene.Atoms {
		assert.False(t, a.Aromatic)
	}
}

func TestCanonicalSMILES(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"CCO", "OCC", "C(O)C", "[CH3][CH2][OH]"}, "CCO"},
		{[]string{"C1=CC=CC=C1", "c1ccccc1", "C1C=CC=CC=1"}, "c1ccccc1"},
		{[]string{"c1ccncc1", "n1ccccc1", "C1=CC=NC=C1"}, "c1ccncc1"},
		{[]string{"CC(C)O", "OC(C)C"}, "CC(C)O"},
		{[]string{"CC(=O)O", "OC(C)=O"}, "CC(=O)O"},
		{[]string{"C1CC1C1CC1"}, "C1CC1C1CC1"},
		{[]string{"C%10CC%10"}, "C1CC1"},
	}
	for _, tc := range cases {
		for _, in := range tc.in {
			assert.Equal(t, tc.want, canonical(t, in), in)
		}
	}
}

func TestCanonicalSMILES_OrderIndependent(t *testing.T) {
	groups := [][]string{
		{"CC(=O)Oc1ccccc1C(=O)O", "OC(=O)c1ccccc1OC(C)=O", "O=C(O)C1=CC=CC=C1OC(=O)C"},
		{"c1ccc2ccccc2c1", "C1=CC=C2C=CC=CC2=C1"},
		{"c1cc[nH]c1", "C1=CC=CN1", "[nH]1cccc1"},
		{"c1ccccc1-c1ccccc1", "c1ccccc1c1ccccc1"},
		{"[Na+].[Cl-]", "[Cl-].[Na+]"},
		{"C[N+](=O)[O-]", "[O-][N+](C)=O"},
	}
	for _, g := range groups {
		want := canonical(t, g[0])
		for _, s := range g[1:] {
			assert.Equal(t, want, canonical(t, s), "%s vs %s", g[0], s)
		}
	}
}

func TestCanonicalSMILES_Idempotent(t *testing.T) {
	for _, s := range []string{
		"CCO", "c1ccccc1O", "c1cc[nH]c1", "CC(=O)Oc1ccccc1C(=O)O",
		"c1ccc2ccccc2c1", "O=c1cccc[nH]1", "C[N+](=O)[O-]", "[13CH4]", "o1cccc1",
		"C1CCC2(CC1)CCCC2",
	} {
		first := canonical(t, s)
		assert.Equal(t, first, canonical(t, first), s)
	}
}

func TestCanonicalSMILES_Brackets(t *testing.T) {
	assert.Contains(t, canonical(t, "c1cc[nH]c1"), "[nH]")
	assert.Contains(t, canonical(t, "c1ccccc1-c1ccccc1"), "-")
	assert.Equal(t, "[NH4+]", canonical(t, "[NH4+]"))
	assert.Equal(t, "[13CH4]", canonical(t, "[13CH4]"))
	assert.Equal(t, "C", canonical(t, "[CH4]"))
	assert.Equal(t, "[CH3]", canonical(t, "[CH3]"))
	assert.Equal(t, "[Na+]", canonical(t, "[Na+]"))
}

func TestCanonicalSMILES_Empty(t *testing.T) {
	assert.Equal(t, "", (&Mol{}).CanonicalSMILES())
}
