package optim

import (
	"math"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Windowgrad is Adagrad with an exponentially-decayed (rather than
// unbounded) accumulator, so old gradients eventually fall out of the
// window.
type Windowgrad struct {
	base
	learningRate float64
	rho          float64
	eps          float64

	accum map[*volume.Volume][]float64
}

// NewWindowgrad declares a Windowgrad optimizer.
func NewWindowgrad(learningRate, rho float64) *Windowgrad {
	return &Windowgrad{learningRate: learningRate, rho: rho, eps: 1e-8, accum: make(map[*volume.Volume][]float64)}
}

func (o *Windowgrad) Step(params []layer.ParamDescriptor, batchSize int) {
	if !o.tick(batchSize) {
		return
	}
	for _, p := range params {
		v := p.Param
		s := o.accum[v]
		if s == nil {
			s = make([]float64, len(v.W))
			o.accum[v] = s
		}
		for i := range v.W {
			g := o.meanGradWithDecay(v.Dw[i], v.W[i], p.L1Mul, p.L2Mul, batchSize)
			s[i] = o.rho*s[i] + (1-o.rho)*g*g
			v.W[i] -= o.learningRate * g / math.Sqrt(s[i]+o.eps)
			v.Dw[i] = 0
		}
	}
}

func (o *Windowgrad) Reset() {
	o.base.Reset()
	o.accum = make(map[*volume.Volume][]float64)
}
