package optim

import (
	"math"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Adadelta tracks two accumulators per parameter element: s (the
// exponentially-decayed squared-gradient, same as Windowgrad) and x (the
// exponentially-decayed squared-update). x intentionally lags s by one
// step — it's updated from this step's dx only after dx has already been
// computed from the *previous* x.
type Adadelta struct {
	base
	rho float64
	eps float64

	s map[*volume.Volume][]float64
	x map[*volume.Volume][]float64
}

// NewAdadelta declares an Adadelta optimizer. Adadelta has no explicit
// learning rate: the update scale is derived entirely from the ratio of
// the two accumulators.
func NewAdadelta(rho, eps float64) *Adadelta {
	return &Adadelta{
		rho: rho,
		eps: eps,
		s:   make(map[*volume.Volume][]float64),
		x:   make(map[*volume.Volume][]float64),
	}
}

func (o *Adadelta) Step(params []layer.ParamDescriptor, batchSize int) {
	if !o.tick(batchSize) {
		return
	}
	for _, p := range params {
		v := p.Param
		s := o.s[v]
		x := o.x[v]
		if s == nil {
			s = make([]float64, len(v.W))
			x = make([]float64, len(v.W))
			o.s[v] = s
			o.x[v] = x
		}
		for i := range v.W {
			g := o.meanGradWithDecay(v.Dw[i], v.W[i], p.L1Mul, p.L2Mul, batchSize)
			s[i] = o.rho*s[i] + (1-o.rho)*g*g
			dx := -math.Sqrt((x[i]+o.eps)/(s[i]+o.eps)) * g
			x[i] = o.rho*x[i] + (1-o.rho)*dx*dx
			v.W[i] += dx
			v.Dw[i] = 0
		}
	}
}

func (o *Adadelta) Reset() {
	o.base.Reset()
	o.s = make(map[*volume.Volume][]float64)
	o.x = make(map[*volume.Volume][]float64)
}
