package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	appmol "github.com/turtacn/molscout/internal/application/molecule"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/pkg/errors"
	ptypes "github.com/turtacn/molscout/pkg/types/molecule"
)

// annotationSource marks query commands with the endpoint they call.
const annotationSource = "molscout/source"

// MoleculeQuerier runs one of the three molecule queries. The SDK's
// MoleculesClient satisfies it, as does the in-process service adapter.
type MoleculeQuerier interface {
	Query(ctx context.Context, source ptypes.Source, smiles string) ([]ptypes.MoleculeResult, error)
}

// ServiceQuerier runs queries against an in-process service.
type ServiceQuerier struct {
	svc appmol.Service
}

func NewServiceQuerier(svc appmol.Service) *ServiceQuerier {
	return &ServiceQuerier{svc: svc}
}

func (q *ServiceQuerier) Query(ctx context.Context, source ptypes.Source, smiles string) ([]ptypes.MoleculeResult, error) {
	query := &ptypes.MoleculeQuery{SMILES: smiles}
	switch source {
	case ptypes.SourceGenerated:
		return q.svc.GenerateSimilar(ctx, query)
	case ptypes.SourceCommercial:
		return q.svc.SearchCommercial(ctx, query)
	case ptypes.SourcePubChem:
		return q.svc.SearchPubChem(ctx, query)
	}
	return nil, errors.InvalidParam(fmt.Sprintf("unknown source %q", source))
}

// NewSimilarCmd generates perturbed analogues of a molecule.
func NewSimilarCmd() *cobra.Command {
	return newQueryCmd(ptypes.SourceGenerated, "similar <smiles>",
		"Generate analogues of a molecule scored by Tanimoto similarity")
}

// NewCommercialCmd lists the commercial reagent catalogue.
func NewCommercialCmd() *cobra.Command {
	cmd := newQueryCmd(ptypes.SourceCommercial, "commercial [smiles]",
		"List commercially available reagents")
	cmd.Args = cobra.MaximumNArgs(1)
	return cmd
}

// NewPubChemCmd searches PubChem for substructure matches.
func NewPubChemCmd() *cobra.Command {
	return newQueryCmd(ptypes.SourcePubChem, "pubchem <smiles>",
		"Search PubChem for compounds containing the structure")
}

func newQueryCmd(source ptypes.Source, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:         use,
		Short:       short,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationSource: string(source)},
		RunE: func(cmd *cobra.Command, args []string) error {
			smiles := ""
			if len(args) > 0 {
				smiles = args[0]
			}
			return runQuery(cmd, source, smiles)
		},
	}
}

func runQuery(cmd *cobra.Command, source ptypes.Source, smiles string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.Querier == nil {
		return errors.New(errors.ErrCodeInternal, "no molecule querier configured")
	}

	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}

	cliCtx.Logger.Debug("running query", logging.String("source", string(source)), logging.String("smiles", smiles))
	results, err := cliCtx.Querier.Query(ctx, source, smiles)
	if err != nil {
		return err
	}
	if results == nil {
		results = []ptypes.MoleculeResult{}
	}
	return PrintResult(cmd, resultList(results))
}

// resultList renders results for the text and table output formats.
type resultList []ptypes.MoleculeResult

func (r resultList) TableHeaders() []string {
	return []string{"#", "SMILES", "Similarity"}
}

func (r resultList) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for i, m := range r {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), m.SMILES, colorizeSimilarity(m.Similarity)})
	}
	return rows
}

func (r resultList) String() string {
	var sb strings.Builder
	for _, m := range r {
		fmt.Fprintf(&sb, "%s\t%.4f\n", m.SMILES, m.Similarity)
	}
	return sb.String()
}

func colorizeSimilarity(s float64) string {
	str := fmt.Sprintf("%.4f", s)
	switch {
	case s >= 0.8:
		return color.GreenString(str)
	case s >= 0.5:
		return color.YellowString(str)
	default:
		return str
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}
