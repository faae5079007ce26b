package client

import (
	"context"

	ptypes "github.com/turtacn/molscout/pkg/types/molecule"
)

// MoleculesClient calls the three molecule endpoints.
type MoleculesClient struct {
	client *Client
}

// GenerateSimilar calls POST /generate_similar.
func (m *MoleculesClient) GenerateSimilar(ctx context.Context, smiles string) ([]ptypes.MoleculeResult, error) {
	return m.query(ctx, ptypes.SourceGenerated, smiles)
}

// SearchCommercial calls POST /search_commercial.
func (m *MoleculesClient) SearchCommercial(ctx context.Context, smiles string) ([]ptypes.MoleculeResult, error) {
	return m.query(ctx, ptypes.SourceCommercial, smiles)
}

// SearchPubChem calls POST /search_pubchem.
func (m *MoleculesClient) SearchPubChem(ctx context.Context, smiles string) ([]ptypes.MoleculeResult, error) {
	return m.query(ctx, ptypes.SourcePubChem, smiles)
}

// Query calls the endpoint serving source.
func (m *MoleculesClient) Query(ctx context.Context, source ptypes.Source, smiles string) ([]ptypes.MoleculeResult, error) {
	return m.query(ctx, source, smiles)
}

func (m *MoleculesClient) query(ctx context.Context, source ptypes.Source, smiles string) ([]ptypes.MoleculeResult, error) {
	out := []ptypes.MoleculeResult{}
	if err := m.client.post(ctx, source.Path(), ptypes.MoleculeQuery{SMILES: smiles}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
