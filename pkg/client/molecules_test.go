package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptypes "github.com/turtacn/molscout/pkg/types/molecule"
)

func TestMoleculesClient_Endpoints(t *testing.T) {
	cases := []struct {
		name string
		path string
		call func(*MoleculesClient) ([]ptypes.MoleculeResult, error)
	}{
		{"generate", "/generate_similar", func(m *MoleculesClient) ([]ptypes.MoleculeResult, error) {
			return m.GenerateSimilar(context.Background(), "CCO")
		}},
		{"commercial", "/search_commercial", func(m *MoleculesClient) ([]ptypes.MoleculeResult, error) {
			return m.SearchCommercial(context.Background(), "CCO")
		}},
		{"pubchem", "/search_pubchem", func(m *MoleculesClient) ([]ptypes.MoleculeResult, error) {
			return m.SearchPubChem(context.Background(), "CCO")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotPath, gotMethod string
			var gotBody ptypes.MoleculeQuery
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				_, _ = w.Write([]byte(`[{"smiles":"CCO","similarity":1}]`))
			})

			results, err := tc.call(c.Molecules())
			require.NoError(t, err)
			assert.Equal(t, tc.path, gotPath)
			assert.Equal(t, http.MethodPost, gotMethod)
			assert.Equal(t, "CCO", gotBody.SMILES)
			assert.Equal(t, []ptypes.MoleculeResult{{SMILES: "CCO", Similarity: 1}}, results)
		})
	}
}

func TestMoleculesClient_EmptyArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	results, err := c.Molecules().SearchPubChem(context.Background(), "[Xe]")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMoleculesClient_Query(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Molecules().Query(context.Background(), ptypes.SourceCommercial, "")
	require.NoError(t, err)
	assert.Equal(t, "/search_commercial", gotPath)
}

func TestMoleculesClient_ErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"MOL_001","message":"Invalid SMILES"}`))
	})

	results, err := c.Molecules().GenerateSimilar(context.Background(), "C1CC")
	assert.Nil(t, results)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsInvalidSMILES())
}
