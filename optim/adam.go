package optim

import (
	"math"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Adam tracks bias-corrected first and second moment estimates of the
// gradient per parameter element.
type Adam struct {
	base
	learningRate float64
	beta1, beta2 float64
	eps          float64
	t            int

	m map[*volume.Volume][]float64
	v map[*volume.Volume][]float64
}

// NewAdam declares an Adam optimizer with the standard beta1=0.9,
// beta2=0.999, eps=1e-8 defaults.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		learningRate: learningRate,
		beta1:        0.9,
		beta2:        0.999,
		eps:          1e-8,
		m:            make(map[*volume.Volume][]float64),
		v:            make(map[*volume.Volume][]float64),
	}
}

func (o *Adam) Step(params []layer.ParamDescriptor, batchSize int) {
	if !o.tick(batchSize) {
		return
	}
	o.t++
	for _, p := range params {
		vol := p.Param
		m := o.m[vol]
		v := o.v[vol]
		if m == nil {
			m = make([]float64, len(vol.W))
			v = make([]float64, len(vol.W))
			o.m[vol] = m
			o.v[vol] = v
		}
		for i := range vol.W {
			g := o.meanGradWithDecay(vol.Dw[i], vol.W[i], p.L1Mul, p.L2Mul, batchSize)
			m[i] = o.beta1*m[i] + (1-o.beta1)*g
			v[i] = o.beta2*v[i] + (1-o.beta2)*g*g
			mHat := m[i] / (1 - math.Pow(o.beta1, float64(o.t)))
			vHat := v[i] / (1 - math.Pow(o.beta2, float64(o.t)))
			vol.W[i] -= o.learningRate * mHat / (math.Sqrt(vHat) + o.eps)
			vol.Dw[i] = 0
		}
	}
}

func (o *Adam) Reset() {
	o.base.Reset()
	o.t = 0
	o.m = make(map[*volume.Volume][]float64)
	o.v = make(map[*volume.Volume][]float64)
}
