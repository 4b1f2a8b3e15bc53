package optim

import (
	"math"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Adagrad accumulates the sum of squared gradients and scales the
// learning rate inversely by its root.
type Adagrad struct {
	base
	learningRate float64
	eps          float64

	accum map[*volume.Volume][]float64
}

// NewAdagrad declares an Adagrad optimizer with the standard 1e-8
// numerical-stability epsilon.
func NewAdagrad(learningRate float64) *Adagrad {
	return &Adagrad{learningRate: learningRate, eps: 1e-8, accum: make(map[*volume.Volume][]float64)}
}

func (o *Adagrad) Step(params []layer.ParamDescriptor, batchSize int) {
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
			s[i] += g * g
			v.W[i] -= o.learningRate * g / math.Sqrt(s[i]+o.eps)
			v.Dw[i] = 0
		}
	}
}

func (o *Adagrad) Reset() {
	o.base.Reset()
	o.accum = make(map[*volume.Volume][]float64)
}
