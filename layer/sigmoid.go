package layer

import (
	"math"

	"github.com/deepvolume/convnet/volume"
)

// Sigmoid applies the elementwise logistic function 1/(1+e^-x).
type Sigmoid struct {
	shape   Shape
	x       *volume.Volume
	lastOut *volume.Volume
}

func NewSigmoid() *Sigmoid { return &Sigmoid{} }

func (l *Sigmoid) Init(in Shape) Shape {
	l.shape = in
	return in
}

func (l *Sigmoid) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.shape.W, l.shape.H, l.shape.D)
	for i, v := range x.W {
		out.W[i] = 1.0 / (1.0 + math.Exp(-v))
	}
	l.lastOut = out
	return out
}

func (l *Sigmoid) Backward() {
	for i := range l.x.Dw {
		s := l.lastOut.W[i]
		l.x.Dw[i] += s * (1 - s) * l.lastOut.Dw[i]
	}
}

func (l *Sigmoid) Params() []ParamDescriptor { return nil }

func (l *Sigmoid) Store() map[string]any {
	return map[string]any{"type": l.Type(), "sx": l.shape.W, "sy": l.shape.H, "depth": l.shape.D}
}

func (l *Sigmoid) Load(m map[string]any) {
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *Sigmoid) Reset() { l.x, l.lastOut = nil, nil }

func (l *Sigmoid) Type() string { return "sigmoid" }

func (l *Sigmoid) InShape() Shape  { return l.shape }
func (l *Sigmoid) OutShape() Shape { return l.shape }
