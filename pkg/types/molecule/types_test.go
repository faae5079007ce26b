package molecule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoleculeResult_JSONShape(t *testing.T) {
	data, err := json.Marshal([]MoleculeResult{{SMILES: "CCO", Similarity: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"smiles":"CCO","similarity":1}]`, string(data))
}

func TestMoleculeQuery_Decode(t *testing.T) {
	var q MoleculeQuery
	require.NoError(t, json.Unmarshal([]byte(`{"smiles":"c1ccccc1"}`), &q))
	assert.Equal(t, "c1ccccc1", q.SMILES)
}

func TestSource(t *testing.T) {
	for _, s := range Sources() {
		assert.True(t, s.IsValid())
	}
	assert.False(t, Source("search_everything").IsValid())
	assert.Equal(t, "/search_pubchem", SourcePubChem.Path())
}
