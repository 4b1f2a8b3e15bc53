package optim

import (
	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// SGD applies plain or momentum-accumulated gradient descent.
type SGD struct {
	base
	learningRate float64
	momentum     float64

	velocity map[*volume.Volume][]float64
}

// NewSGD declares a stochastic gradient descent optimizer. A zero
// momentum disables velocity accumulation.
func NewSGD(learningRate, momentum float64) *SGD {
	return &SGD{
		learningRate: learningRate,
		momentum:     momentum,
		velocity:     make(map[*volume.Volume][]float64),
	}
}

func (o *SGD) Step(params []layer.ParamDescriptor, batchSize int) {
	if !o.tick(batchSize) {
		return
	}
	for _, p := range params {
		v := p.Param
		var vel []float64
		if o.momentum > 0 {
			vel = o.velocity[v]
			if vel == nil {
				vel = make([]float64, len(v.W))
				o.velocity[v] = vel
			}
		}
		for i := range v.W {
			g := o.meanGradWithDecay(v.Dw[i], v.W[i], p.L1Mul, p.L2Mul, batchSize)
			if o.momentum > 0 {
				vel[i] = o.momentum*vel[i] + o.learningRate*g
				v.W[i] -= vel[i]
			} else {
				v.W[i] -= o.learningRate * g
			}
			v.Dw[i] = 0
		}
	}
}

func (o *SGD) Reset() {
	o.base.Reset()
	o.velocity = make(map[*volume.Volume][]float64)
}
