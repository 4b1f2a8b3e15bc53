package layer

import (
	"math/rand"

	"github.com/deepvolume/convnet/volume"
)

// Dropout zeroes each value independently with probability p during
// training, scaling survivors by 1/(1-p) (inverted dropout), and passes
// through unchanged at inference.
type Dropout struct {
	p float64

	shape Shape
	x     *volume.Volume

	lastOut     *volume.Volume
	mask        []bool
	wasTraining bool
}

func NewDropout(p float64) *Dropout { return &Dropout{p: p} }

func (l *Dropout) Init(in Shape) Shape {
	l.shape = in
	return in
}

func (l *Dropout) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	l.wasTraining = isTraining
	out := volume.NewZeros(l.shape.W, l.shape.H, l.shape.D)

	if !isTraining {
		copy(out.W, x.W)
		l.lastOut = out
		return out
	}

	if len(l.mask) != len(x.W) {
		l.mask = make([]bool, len(x.W))
	}
	scale := 1.0 / (1.0 - l.p)
	for i, v := range x.W {
		keep := rand.Float64() >= l.p
		l.mask[i] = keep
		if keep {
			out.W[i] = v * scale
		}
	}
	l.lastOut = out
	return out
}

func (l *Dropout) Backward() {
	if !l.wasTraining {
		copy(l.x.Dw, l.lastOut.Dw)
		return
	}
	scale := 1.0 / (1.0 - l.p)
	for i := range l.x.Dw {
		if l.mask[i] {
			l.x.Dw[i] += l.lastOut.Dw[i] * scale
		}
	}
}

func (l *Dropout) Params() []ParamDescriptor { return nil }

func (l *Dropout) Store() map[string]any {
	return map[string]any{"type": l.Type(), "drop_prob": l.p, "sx": l.shape.W, "sy": l.shape.H, "depth": l.shape.D}
}

func (l *Dropout) Load(m map[string]any) {
	l.p = floatField(m, "drop_prob")
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *Dropout) Reset() {
	l.x, l.lastOut = nil, nil
	l.mask = nil
}

func (l *Dropout) Type() string { return "dropout" }

func (l *Dropout) InShape() Shape  { return l.shape }
func (l *Dropout) OutShape() Shape { return l.shape }
