package navigation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrGeometry is returned when the satellite geometry does not support a
// solution.
var ErrGeometry = errors.New("degenerate satellite geometry")

const (
	maxIterations = 10
	// convergence threshold on the position update, metres
	converged = 1e-4
)

// fix is a least squares position and clock solution.
type fix struct {
	pos  [3]float64
	bias float64 // receiver clock bias, metres
	gdop float64
}

// sagnac rotates a satellite position into the earth fixed frame of the
// reception time, travel seconds later.
func sagnac(x [3]float64, travel float64) [3]float64 {
	th := earthRotation * travel
	s, c := math.Sin(th), math.Cos(th)
	return [3]float64{c*x[0] + s*x[1], -s*x[0] + c*x[1], x[2]}
}

// solvePosition runs iterative least squares on pseudoranges pr, metres,
// from satellites at sats (transmit time ECEF positions).
func solvePosition(sats [][3]float64, pr []float64) (fix, error) {
	n := len(sats)
	if n < 4 || len(pr) != n {
		return fix{}, ErrGeometry
	}

	var x [4]float64
	h := mat.NewDense(n, 4, nil)
	omc := mat.NewVecDense(n, nil)
	var dx mat.VecDense

	for iter := 0; iter < maxIterations; iter++ {
		for i, s := range sats {
			rot := s
			if iter > 0 {
				d := [3]float64{s[0] - x[0], s[1] - x[1], s[2] - x[2]}
				rot = sagnac(s, floats.Norm(d[:], 2)/SpeedOfLight)
			}
			d := [3]float64{rot[0] - x[0], rot[1] - x[1], rot[2] - x[2]}
			rng := floats.Norm(d[:], 2)
			if rng == 0 {
				return fix{}, ErrGeometry
			}
			omc.SetVec(i, pr[i]-rng-x[3])
			h.Set(i, 0, -d[0]/rng)
			h.Set(i, 1, -d[1]/rng)
			h.Set(i, 2, -d[2]/rng)
			h.Set(i, 3, 1)
		}
		if err := dx.SolveVec(h, omc); err != nil {
			return fix{}, ErrGeometry
		}
		for k := range x {
			x[k] += dx.AtVec(k)
		}
		if math.Sqrt(dx.AtVec(0)*dx.AtVec(0)+dx.AtVec(1)*dx.AtVec(1)+dx.AtVec(2)*dx.AtVec(2)) < converged {
			break
		}
	}

	gdop, err := dop(h)
	if err != nil {
		return fix{}, err
	}
	out := fix{pos: [3]float64{x[0], x[1], x[2]}, bias: x[3], gdop: gdop}
	if !finite(out.pos[:]) || math.IsNaN(out.bias) {
		return fix{}, ErrGeometry
	}
	return out, nil
}

// dop returns the geometric dilution of precision of design matrix h.
func dop(h *mat.Dense) (float64, error) {
	var q mat.Dense
	q.Mul(h.T(), h)
	var inv mat.Dense
	if err := inv.Inverse(&q); err != nil {
		return 0, ErrGeometry
	}
	return math.Sqrt(mat.Trace(&inv)), nil
}

// solveVelocity estimates receiver velocity and clock drift from range
// rates, m/s, of satellites at sats moving with vels, seen from rx.
func solveVelocity(rx [3]float64, sats, vels [][3]float64, rates []float64) ([3]float64, float64, error) {
	n := len(sats)
	if n < 4 || len(vels) != n || len(rates) != n {
		return [3]float64{}, 0, ErrGeometry
	}
	h := mat.NewDense(n, 4, nil)
	b := mat.NewVecDense(n, nil)
	for i, s := range sats {
		d := [3]float64{s[0] - rx[0], s[1] - rx[1], s[2] - rx[2]}
		rng := floats.Norm(d[:], 2)
		if rng == 0 {
			return [3]float64{}, 0, ErrGeometry
		}
		e := [3]float64{d[0] / rng, d[1] / rng, d[2] / rng}
		h.Set(i, 0, -e[0])
		h.Set(i, 1, -e[1])
		h.Set(i, 2, -e[2])
		h.Set(i, 3, 1)
		b.SetVec(i, rates[i]-(e[0]*vels[i][0]+e[1]*vels[i][1]+e[2]*vels[i][2]))
	}
	var x mat.VecDense
	if err := x.SolveVec(h, b); err != nil {
		return [3]float64{}, 0, ErrGeometry
	}
	v := [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}
	if !finite(v[:]) || math.IsNaN(x.AtVec(3)) {
		return [3]float64{}, 0, ErrGeometry
	}
	return v, x.AtVec(3), nil
}

func finite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
