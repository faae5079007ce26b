package molecule

import (
	"context"
	"math"
	"math/rand"
)

// OptimizeResult summarizes a geometry relaxation.
type OptimizeResult struct {
	Iterations int
	Energy     float64
	Converged  bool
}

const (
	bondForce      = 300.0
	angleForce     = 50.0
	repulsionForce = 5.0
	repulsionDist  = 2.5
	// repulsionDepth is the largest bond-path separation that still gets a
	// repulsion term. Pairs further apart in the graph are not evaluated.
	repulsionDepth = 4
	embedSeed      = 0x5eed
	gradTolerance  = 1e-4
	energyTol      = 1e-8
)

// pairTerm is a harmonic restraint on the distance between two atoms.
// Repulsive terms only act when the atoms are closer than rest.
type pairTerm struct {
	i, j      int
	k, rest   float64
	repulsive bool
}

// Optimize relaxes m under a small valence force field using steepest
// descent with backtracking, for at most maxIters iterations. A molecule
// without coordinates is first embedded deterministically. ctx is checked
// once per iteration; on cancellation its error is returned.
func Optimize(ctx context.Context, m *Mol, maxIters int) (*Mol, OptimizeResult, error) {
	if len(m.Atoms) == 0 {
		return nil, OptimizeResult{}, &ParseError{Pos: -1, Msg: "empty molecule"}
	}
	out := m.Clone()
	if !out.HasCoords() {
		out.Coords = embed(out)
	}
	terms := out.forceFieldTerms()

	x := out.Coords
	grad := make([]Point3, len(x))
	trial := make([]Point3, len(x))
	e := evaluate(terms, x, grad)
	step := 0.1
	res := OptimizeResult{Energy: e}

	for res.Iterations < maxIters {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		gnorm := 0.0
		for _, g := range grad {
			gnorm += g[0]*g[0] + g[1]*g[1] + g[2]*g[2]
		}
		if math.Sqrt(gnorm) < gradTolerance {
			res.Converged = true
			break
		}
		res.Iterations++

		alpha := step / math.Sqrt(gnorm)
		var eTrial float64
		for {
			for i := range x {
				for d := 0; d < 3; d++ {
					trial[i][d] = x[i][d] - alpha*grad[i][d]
				}
			}
			eTrial = evaluate(terms, trial, nil)
			if eTrial < e || alpha < 1e-12 {
				break
			}
			alpha /= 2
		}
		if eTrial >= e {
			res.Converged = true
			break
		}
		copy(x, trial)
		prev := e
		e = evaluate(terms, x, grad)
		step = math.Min(alpha*math.Sqrt(gnorm)*2, 1.0)
		if prev-e < energyTol {
			res.Converged = true
			break
		}
	}
	res.Energy = e
	return out, res, nil
}

func covalentRadius(at Atom) float64 {
	if e, ok := elementsByZ[at.Z]; ok && e.CovalentRadius > 0 {
		return e.CovalentRadius
	}
	return 0.75
}

func restLength(m *Mol, b Bond) float64 {
	r := covalentRadius(m.Atoms[b.Begin]) + covalentRadius(m.Atoms[b.End])
	switch {
	case b.Aromatic:
		r -= 0.1
	case b.Order == BondDouble:
		r -= 0.2
	case b.Order == BondTriple, b.Order == BondQuadruple:
		r -= 0.34
	}
	return r
}

// idealAngle picks the bond angle at a from its hybridization.
func (m *Mol) idealAngle(a int) float64 {
	doubles, triples, aromatic := 0, 0, false
	for _, bi := range m.adj[a] {
		b := m.Bonds[bi]
		switch {
		case b.Aromatic:
			aromatic = true
		case b.Order == BondDouble:
			doubles++
		case b.Order >= BondTriple:
			triples++
		}
	}
	switch {
	case triples > 0 || doubles > 1:
		return math.Pi
	case doubles == 1 || aromatic:
		return 2 * math.Pi / 3
	}
	return 109.47 * math.Pi / 180
}

func (m *Mol) forceFieldTerms() []pairTerm {
	n := len(m.Atoms)
	var terms []pairTerm
	near := make(map[[2]int]bool)
	mark := func(i, j int) {
		if i > j {
			i, j = j, i
		}
		near[[2]int{i, j}] = true
	}

	for _, b := range m.Bonds {
		terms = append(terms, pairTerm{i: b.Begin, j: b.End, k: bondForce, rest: restLength(m, b)})
		mark(b.Begin, b.End)
	}
	for c := 0; c < n; c++ {
		theta := m.idealAngle(c)
		bonds := m.adj[c]
		for x := 0; x < len(bonds); x++ {
			for y := x + 1; y < len(bonds); y++ {
				b1, b2 := m.Bonds[bonds[x]], m.Bonds[bonds[y]]
				i, j := b1.Other(c), b2.Other(c)
				r1, r2 := restLength(m, b1), restLength(m, b2)
				d := math.Sqrt(r1*r1 + r2*r2 - 2*r1*r2*math.Cos(theta))
				terms = append(terms, pairTerm{i: i, j: j, k: angleForce, rest: d})
				mark(i, j)
			}
		}
	}
	for i := 0; i < n; i++ {
		for _, j := range m.within(i, repulsionDepth) {
			if j <= i || near[[2]int{i, j}] {
				continue
			}
			terms = append(terms, pairTerm{i: i, j: j, k: repulsionForce, rest: repulsionDist, repulsive: true})
		}
	}
	return terms
}

// within lists the atoms at most depth bonds away from a, excluding a.
func (m *Mol) within(a, depth int) []int {
	dist := map[int]int{a: 0}
	queue := []int{a}
	var out []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] == depth {
			continue
		}
		for _, bi := range m.adj[cur] {
			nb := m.Bonds[bi].Other(cur)
			if _, seen := dist[nb]; seen {
				continue
			}
			dist[nb] = dist[cur] + 1
			out = append(out, nb)
			queue = append(queue, nb)
		}
	}
	return out
}

// evaluate returns the energy at x and, when grad is non-nil, fills it.
func evaluate(terms []pairTerm, x []Point3, grad []Point3) float64 {
	for i := range grad {
		grad[i] = Point3{}
	}
	e := 0.0
	for _, t := range terms {
		var d Point3
		for k := 0; k < 3; k++ {
			d[k] = x[t.i][k] - x[t.j][k]
		}
		r := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		dr := r - t.rest
		if t.repulsive && dr >= 0 {
			continue
		}
		e += t.k * dr * dr
		if grad == nil || r < 1e-9 {
			continue
		}
		f := 2 * t.k * dr / r
		for k := 0; k < 3; k++ {
			grad[t.i][k] += f * d[k]
			grad[t.j][k] -= f * d[k]
		}
	}
	return e
}

// embed grows coordinates outward from each component root along BFS order,
// placing every atom at bond length from its parent in a pseudo-random
// direction. The fixed seed makes the result reproducible.
func embed(m *Mol) []Point3 {
	rng := rand.New(rand.NewSource(embedSeed))
	coords := make([]Point3, len(m.Atoms))
	placed := make([]bool, len(m.Atoms))
	offset := 0.0
	for _, comp := range m.components() {
		root := comp[0]
		coords[root] = Point3{offset, 0, 0}
		placed[root] = true
		queue := []int{root}
		for len(queue) > 0 {
			a := queue[0]
			queue = queue[1:]
			for _, bi := range m.adj[a] {
				b := m.Bonds[bi]
				nb := b.Other(a)
				if placed[nb] {
					continue
				}
				dir := randomUnit(rng)
				r := restLength(m, b)
				coords[nb] = Point3{coords[a][0] + r*dir[0], coords[a][1] + r*dir[1], coords[a][2] + r*dir[2]}
				placed[nb] = true
				queue = append(queue, nb)
			}
		}
		offset += 10
	}
	return coords
}

func randomUnit(rng *rand.Rand) Point3 {
	for {
		p := Point3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		n := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if n > 1e-3 && n <= 1 {
			return Point3{p[0] / n, p[1] / n, p[2] / n}
		}
	}
}
