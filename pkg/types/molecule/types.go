// Package molecule defines the request and response shapes of the molecule
// endpoints. They carry no behaviour and are safe to import from any layer.
package molecule

// MoleculeQuery is the body of every molecule endpoint.
type MoleculeQuery struct {
	SMILES string `json:"smiles"`
}

// MoleculeResult is one candidate structure. Similarity is a Tanimoto score
// in [0,1] when computed and 0 when it was not.
type MoleculeResult struct {
	SMILES     string  `json:"smiles"`
	Similarity float64 `json:"similarity"`
}

// Source names the endpoint that produced a result list. It labels metrics
// and CLI output.
type Source string

const (
	SourceGenerated  Source = "generate_similar"
	SourceCommercial Source = "search_commercial"
	SourcePubChem    Source = "search_pubchem"
)

// Sources lists every Source in endpoint order.
func Sources() []Source {
	return []Source{SourceGenerated, SourceCommercial, SourcePubChem}
}

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case SourceGenerated, SourceCommercial, SourcePubChem:
		return true
	}
	return false
}

// Path returns the HTTP path serving s.
func (s Source) Path() string { return "/" + string(s) }
