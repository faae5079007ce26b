package molecule

import (
	"context"
	stderrors "errors"

	"github.com/turtacn/molscout/pkg/errors"
)

// Toolkit is the set of cheminformatics operations the application layer
// depends on. The default implementation is in-process; tests substitute a
// double.
type Toolkit interface {
	// Parse reads a SMILES string. Failures carry ErrCodeMoleculeInvalidSMILES.
	Parse(smiles string) (*Mol, error)
	Canonical(m *Mol) string
	AddHs(m *Mol) *Mol
	RemoveHs(m *Mol) *Mol
	// Optimize stops with ErrCodeTimeout when ctx is done.
	Optimize(ctx context.Context, m *Mol, maxIters int) (*Mol, OptimizeResult, error)
	MorganFingerprint(m *Mol) (*Fingerprint, error)
	Tanimoto(a, b *Fingerprint) (float64, error)
}

const (
	DefaultFingerprintRadius = 2
	DefaultFingerprintBits   = 2048
)

// ToolkitOption configures the default toolkit.
type ToolkitOption func(*toolkit)

// WithFingerprint overrides the Morgan radius and bit length.
func WithFingerprint(radius, nBits int) ToolkitOption {
	return func(t *toolkit) {
		if radius >= 0 {
			t.radius = radius
		}
		if nBits > 0 {
			t.nBits = nBits
		}
	}
}

type toolkit struct {
	radius int
	nBits  int
}

// NewToolkit returns the in-process Toolkit.
func NewToolkit(opts ...ToolkitOption) Toolkit {
	t := &toolkit{radius: DefaultFingerprintRadius, nBits: DefaultFingerprintBits}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *toolkit) Parse(smiles string) (*Mol, error) {
	m, err := ParseSMILES(smiles)
	if err != nil {
		return nil, errors.InvalidSMILES(err.Error()).WithCause(err)
	}
	return m, nil
}

func (t *toolkit) Canonical(m *Mol) string { return m.CanonicalSMILES() }

func (t *toolkit) AddHs(m *Mol) *Mol { return AddHs(m) }

func (t *toolkit) RemoveHs(m *Mol) *Mol { return RemoveHs(m) }

func (t *toolkit) Optimize(ctx context.Context, m *Mol, maxIters int) (*Mol, OptimizeResult, error) {
	out, res, err := Optimize(ctx, m, maxIters)
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return nil, res, errors.Wrap(err, errors.ErrCodeTimeout, "optimization cancelled")
	}
	if err != nil {
		return nil, res, errors.Wrap(err, errors.ErrCodeForceFieldSetupFailed, "force field setup failed")
	}
	return out, res, nil
}

func (t *toolkit) MorganFingerprint(m *Mol) (*Fingerprint, error) {
	return MorganFingerprint(m, t.radius, t.nBits)
}

func (t *toolkit) Tanimoto(a, b *Fingerprint) (float64, error) { return Tanimoto(a, b) }
