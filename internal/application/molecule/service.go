// Package molecule is the application service behind the three molecule
// endpoints. It owns no state beyond its injected collaborators.
package molecule

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	domainMol "github.com/turtacn/molscout/internal/domain/molecule"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molscout/pkg/errors"
	ptypes "github.com/turtacn/molscout/pkg/types/molecule"
)

const (
	// PerturbationRounds is the number of candidates generate_similar emits.
	PerturbationRounds = 10
	// MaxOptimizeIters bounds each force-field relaxation.
	MaxOptimizeIters = 50
	// MaxCandidates caps the CIDs resolved per PubChem search.
	MaxCandidates = 10
	// LookupConcurrency bounds parallel per-CID property lookups.
	LookupConcurrency = 4
	// MaxAtoms caps the parsed atoms of a generate_similar input. Implicit
	// hydrogens are not counted.
	MaxAtoms = 200
)

// CommercialReagents is the fixed catalogue returned by search_commercial.
var CommercialReagents = []ptypes.MoleculeResult{
	{SMILES: "CCO", Similarity: 0.8},
	{SMILES: "CCCO", Similarity: 0.7},
	{SMILES: "CCCCO", Similarity: 0.6},
}

// Service defines the molecule operations exposed over HTTP and the CLI.
type Service interface {
	GenerateSimilar(ctx context.Context, q *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error)
	SearchCommercial(ctx context.Context, q *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error)
	SearchPubChem(ctx context.Context, q *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error)
}

// PubChemClient is the subset of the PubChem API the service calls.
type PubChemClient interface {
	SubstructureCIDs(ctx context.Context, smiles string) ([]int64, error)
	CanonicalSMILES(ctx context.Context, cid int64) (string, error)
}

// Config tunes the service. Zero fields take the package defaults.
type Config struct {
	PerturbationRounds int
	MaxOptimizeIters   int
	MaxCandidates      int
	LookupConcurrency  int
	MaxAtoms           int
	// MaxConcurrency bounds concurrent generate_similar runs. Zero means
	// GOMAXPROCS.
	MaxConcurrency int
}

func (c *Config) applyDefaults() {
	if c.PerturbationRounds <= 0 {
		c.PerturbationRounds = PerturbationRounds
	}
	if c.MaxOptimizeIters <= 0 {
		c.MaxOptimizeIters = MaxOptimizeIters
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = MaxCandidates
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = LookupConcurrency
	}
	if c.MaxAtoms <= 0 {
		c.MaxAtoms = MaxAtoms
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = runtime.GOMAXPROCS(0)
	}
}

type serviceImpl struct {
	toolkit domainMol.Toolkit
	pubchem PubChemClient
	gate    *semaphore.Weighted
	cfg     Config
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewService wires the service. metrics may be nil.
func NewService(cfg Config, toolkit domainMol.Toolkit, pubchem PubChemClient, logger logging.Logger, metrics *prometheus.AppMetrics) Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopMetrics()
	}
	return &serviceImpl{
		toolkit: toolkit,
		pubchem: pubchem,
		gate:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		cfg:     cfg,
		logger:  logger.Named("molecule"),
		metrics: metrics,
	}
}

// GenerateSimilar runs the perturbation pipeline PerturbationRounds times.
//
// Every round canonicalizes, re-parses, adds hydrogens, relaxes the geometry,
// strips hydrogens and writes canonical SMILES again. Geometry never reaches
// canonical SMILES, so each round reproduces the canonical input with
// similarity 1.0. The behaviour is kept as-is; see DESIGN.md.
func (s *serviceImpl) GenerateSimilar(ctx context.Context, q *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error) {
	if q == nil {
		return nil, errors.InvalidSMILES("missing query")
	}
	log := logging.FromContext(ctx, s.logger).With(logging.String(logging.FieldSMILES, q.SMILES))
	start := time.Now()

	ref, err := s.parse(q.SMILES)
	if err != nil {
		log.Info("rejected invalid smiles", logging.Err(err))
		return nil, err
	}
	if n := ref.NumAtoms(); n > s.cfg.MaxAtoms {
		log.Info("rejected oversized molecule", logging.Int("atoms", n))
		return nil, errors.InvalidParam(fmt.Sprintf("molecule has %d atoms, limit is %d", n, s.cfg.MaxAtoms))
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "chemistry workers busy")
	}
	defer s.gate.Release(1)
	busy := s.metrics.ChemistryWorkersBusy.WithLabelValues()
	busy.Inc()
	defer busy.Dec()

	refFP, err := s.fingerprint(ref)
	if err != nil {
		return nil, err
	}

	results := make([]ptypes.MoleculeResult, 0, s.cfg.PerturbationRounds)
	for i := 0; i < s.cfg.PerturbationRounds; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "generation cancelled")
		}
		r, err := s.perturb(ctx, ref, refFP)
		if errors.IsCode(err, errors.ErrCodeTimeout) {
			log.Info("generation cancelled", logging.Int("round", i))
			return nil, err
		}
		if err != nil {
			log.Error("perturbation round failed", logging.Int("round", i), logging.Err(err))
			s.metrics.RecordError("molecule", errors.GetCode(err).String())
			return nil, err
		}
		results = append(results, r)
	}

	logging.LogOperationDuration(log, "generate_similar", start, logging.Int("results", len(results)))
	return results, nil
}

func (s *serviceImpl) perturb(ctx context.Context, ref *domainMol.Mol, refFP *domainMol.Fingerprint) (ptypes.MoleculeResult, error) {
	canon := s.timed("canonicalize", func() string { return s.toolkit.Canonical(ref) })
	mol, err := s.toolkit.Parse(canon)
	if err != nil {
		return ptypes.MoleculeResult{}, errors.Wrap(err, errors.ErrCodeMoleculeConversionFailed, "canonical smiles did not re-parse")
	}

	withH := s.toolkit.AddHs(mol)
	t := time.Now()
	optimized, _, err := s.toolkit.Optimize(ctx, withH, s.cfg.MaxOptimizeIters)
	s.metrics.ObserveChemistry("optimize", time.Since(t))
	if errors.IsCode(err, errors.ErrCodeTimeout) {
		return ptypes.MoleculeResult{}, errors.Wrap(err, errors.ErrCodeTimeout, "generation cancelled")
	}
	if err != nil {
		return ptypes.MoleculeResult{}, errors.Wrap(err, errors.ErrCodeForceFieldSetupFailed, "force field optimization failed")
	}
	stripped := s.toolkit.RemoveHs(optimized)
	out := s.timed("canonicalize", func() string { return s.toolkit.Canonical(stripped) })

	fp, err := s.fingerprint(stripped)
	if err != nil {
		return ptypes.MoleculeResult{}, err
	}
	sim, err := s.toolkit.Tanimoto(refFP, fp)
	if err != nil {
		return ptypes.MoleculeResult{}, errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "similarity failed")
	}
	return ptypes.MoleculeResult{SMILES: out, Similarity: sim}, nil
}

func (s *serviceImpl) parse(smiles string) (*domainMol.Mol, error) {
	t := time.Now()
	m, err := s.toolkit.Parse(smiles)
	s.metrics.ObserveChemistry("parse", time.Since(t))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES) {
			return nil, err
		}
		return nil, errors.InvalidSMILES(err.Error()).WithCause(err)
	}
	return m, nil
}

func (s *serviceImpl) fingerprint(m *domainMol.Mol) (*domainMol.Fingerprint, error) {
	t := time.Now()
	fp, err := s.toolkit.MorganFingerprint(m)
	s.metrics.ObserveChemistry("fingerprint", time.Since(t))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "fingerprint failed")
	}
	return fp, nil
}

func (s *serviceImpl) timed(op string, fn func() string) string {
	t := time.Now()
	out := fn()
	s.metrics.ObserveChemistry(op, time.Since(t))
	return out
}

// SearchCommercial returns CommercialReagents regardless of the query.
func (s *serviceImpl) SearchCommercial(_ context.Context, _ *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error) {
	out := make([]ptypes.MoleculeResult, len(CommercialReagents))
	copy(out, CommercialReagents)
	return out, nil
}

// SearchPubChem resolves up to MaxCandidates substructure hits to SMILES.
// A failed search is an upstream error; a failed per-CID lookup only drops
// that CID.
func (s *serviceImpl) SearchPubChem(ctx context.Context, q *ptypes.MoleculeQuery) ([]ptypes.MoleculeResult, error) {
	smiles := ""
	if q != nil {
		smiles = q.SMILES
	}
	log := logging.FromContext(ctx, s.logger).With(logging.String(logging.FieldSMILES, smiles))
	start := time.Now()

	cids, err := s.pubchem.SubstructureCIDs(ctx, smiles)
	if err != nil {
		s.metrics.RecordError("pubchem", errors.CodeUpstream.String())
		log.Warn("pubchem substructure search failed", logging.Err(err))
		if errors.IsUpstream(err) {
			return nil, err
		}
		return nil, errors.Upstream(err, "pubchem substructure search failed")
	}
	if len(cids) > s.cfg.MaxCandidates {
		cids = cids[:s.cfg.MaxCandidates]
	}

	slots := make([]*ptypes.MoleculeResult, len(cids))
	var g errgroup.Group
	g.SetLimit(s.cfg.LookupConcurrency)
	for i, cid := range cids {
		g.Go(func() error {
			smi, err := s.pubchem.CanonicalSMILES(ctx, cid)
			if err != nil {
				log.Warn("skipping pubchem compound", logging.Int64("cid", cid), logging.Err(err))
				return nil
			}
			slots[i] = &ptypes.MoleculeResult{SMILES: smi, Similarity: 0}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]ptypes.MoleculeResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	logging.LogOperationDuration(log, "search_pubchem", start,
		logging.Int("cids", len(cids)), logging.Int("results", len(results)))
	return results, nil
}
