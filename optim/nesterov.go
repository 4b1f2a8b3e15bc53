package optim

import (
	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Nesterov applies Nesterov-accelerated momentum.
type Nesterov struct {
	base
	learningRate float64
	momentum     float64

	velocity map[*volume.Volume][]float64
}

// NewNesterov declares a Nesterov-momentum optimizer.
func NewNesterov(learningRate, momentum float64) *Nesterov {
	return &Nesterov{learningRate: learningRate, momentum: momentum, velocity: make(map[*volume.Volume][]float64)}
}

func (o *Nesterov) Step(params []layer.ParamDescriptor, batchSize int) {
	if !o.tick(batchSize) {
		return
	}
	for _, p := range params {
		v := p.Param
		vel := o.velocity[v]
		if vel == nil {
			vel = make([]float64, len(v.W))
			o.velocity[v] = vel
		}
		for i := range v.W {
			g := o.meanGradWithDecay(v.Dw[i], v.W[i], p.L1Mul, p.L2Mul, batchSize)
			vPrev := vel[i]
			vel[i] = o.momentum*vel[i] + o.learningRate*g
			v.W[i] += o.momentum*vPrev - (1+o.momentum)*vel[i]
			v.Dw[i] = 0
		}
	}
}

func (o *Nesterov) Reset() {
	o.base.Reset()
	o.velocity = make(map[*volume.Volume][]float64)
}
