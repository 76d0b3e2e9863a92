package ml

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// lstmLayer holds the weights of one LSTM layer. Gate blocks are stacked in
// the order input, forget, cell, output.
type lstmLayer struct {
	in, hidden int
	W          *mat.Dense    // 4H x in
	U          *mat.Dense    // 4H x H
	B          *mat.VecDense // 4H
}

func newLSTMLayer(in, hidden int, rng *rand.Rand) *lstmLayer {
	l := &lstmLayer{
		in:     in,
		hidden: hidden,
		W:      mat.NewDense(4*hidden, in, glorotUniform(rng, in, 4*hidden, 4*hidden*in)),
		U:      mat.NewDense(4*hidden, hidden, glorotUniform(rng, hidden, 4*hidden, 4*hidden*hidden)),
		B:      mat.NewVecDense(4*hidden, nil),
	}
	// forget gate starts open
	for j := hidden; j < 2*hidden; j++ {
		l.B.SetVec(j, 1)
	}
	return l
}

// lstmStep caches what backpropagation needs for one time step
type lstmStep struct {
	x     *mat.VecDense
	hPrev *mat.VecDense
	cPrev []float64
	gates []float64 // activated i, f, g, o
	c     []float64
	h     *mat.VecDense
}

func (l *lstmLayer) forward(xs []*mat.VecDense) []lstmStep {
	H := l.hidden
	h := mat.NewVecDense(H, nil)
	c := make([]float64, H)
	z := mat.NewVecDense(4*H, nil)
	rec := mat.NewVecDense(4*H, nil)

	steps := make([]lstmStep, len(xs))
	for t, x := range xs {
		z.MulVec(l.W, x)
		rec.MulVec(l.U, h)
		z.AddVec(z, rec)
		z.AddVec(z, l.B)

		gates := make([]float64, 4*H)
		cNew := make([]float64, H)
		hNew := mat.NewVecDense(H, nil)
		for j := 0; j < H; j++ {
			ig := sigmoid(z.AtVec(j))
			fg := sigmoid(z.AtVec(H + j))
			gg := math.Tanh(z.AtVec(2*H + j))
			og := sigmoid(z.AtVec(3*H + j))
			gates[j], gates[H+j], gates[2*H+j], gates[3*H+j] = ig, fg, gg, og

			cNew[j] = fg*c[j] + ig*gg
			hNew.SetVec(j, og*math.Tanh(cNew[j]))
		}

		steps[t] = lstmStep{x: x, hPrev: h, cPrev: c, gates: gates, c: cNew, h: hNew}
		h, c = hNew, cNew
	}
	return steps
}

// lstmGrad accumulates gradients with the same shapes as lstmLayer
type lstmGrad struct {
	W *mat.Dense
	U *mat.Dense
	B *mat.VecDense
}

func newLSTMGrad(l *lstmLayer) *lstmGrad {
	return &lstmGrad{
		W: mat.NewDense(4*l.hidden, l.in, nil),
		U: mat.NewDense(4*l.hidden, l.hidden, nil),
		B: mat.NewVecDense(4*l.hidden, nil),
	}
}

// backward runs backpropagation through time. dH[t] is the gradient flowing
// into h_t from above and may be nil. It returns the gradient for each input.
func (l *lstmLayer) backward(steps []lstmStep, dH []*mat.VecDense, g *lstmGrad) []*mat.VecDense {
	H := l.hidden
	dx := make([]*mat.VecDense, len(steps))
	dhNext := mat.NewVecDense(H, nil)
	dcNext := make([]float64, H)
	dz := mat.NewVecDense(4*H, nil)

	for t := len(steps) - 1; t >= 0; t-- {
		s := steps[t]
		for j := 0; j < H; j++ {
			dh := dhNext.AtVec(j)
			if dH[t] != nil {
				dh += dH[t].AtVec(j)
			}
			ig, fg, gg, og := s.gates[j], s.gates[H+j], s.gates[2*H+j], s.gates[3*H+j]
			tc := math.Tanh(s.c[j])
			dc := dcNext[j] + dh*og*(1-tc*tc)

			dz.SetVec(j, dc*gg*ig*(1-ig))
			dz.SetVec(H+j, dc*s.cPrev[j]*fg*(1-fg))
			dz.SetVec(2*H+j, dc*ig*(1-gg*gg))
			dz.SetVec(3*H+j, dh*tc*og*(1-og))
			dcNext[j] = dc * fg
		}

		g.W.RankOne(g.W, 1, dz, s.x)
		g.U.RankOne(g.U, 1, dz, s.hPrev)
		g.B.AddVec(g.B, dz)

		d := mat.NewVecDense(l.in, nil)
		d.MulVec(l.W.T(), dz)
		dx[t] = d
		dhNext.MulVec(l.U.T(), dz)
	}
	return dx
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// glorotUniform draws n weights from U(-limit, limit), limit = sqrt(6/(fanIn+fanOut))
func glorotUniform(rng *rand.Rand, fanIn, fanOut, n int) []float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	w := make([]float64, n)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return w
}

// adam implements the Adam optimizer over flat parameter slices
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	a.m = make([][]float64, len(params))
	a.v = make([][]float64, len(params))
	for k, p := range params {
		a.m[k] = make([]float64, len(p))
		a.v[k] = make([]float64, len(p))
	}
	return a
}

func (a *adam) step(params, grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
}
