package layer

import (
	"math"

	"github.com/deepvolume/convnet/volume"
)

// Tanh applies the elementwise hyperbolic tangent.
type Tanh struct {
	shape   Shape
	x       *volume.Volume
	lastOut *volume.Volume
}

func NewTanh() *Tanh { return &Tanh{} }

func (l *Tanh) Init(in Shape) Shape {
	l.shape = in
	return in
}

func (l *Tanh) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.shape.W, l.shape.H, l.shape.D)
	for i, v := range x.W {
		out.W[i] = math.Tanh(v)
	}
	l.lastOut = out
	return out
}

func (l *Tanh) Backward() {
	for i := range l.x.Dw {
		t := l.lastOut.W[i]
		l.x.Dw[i] += (1 - t*t) * l.lastOut.Dw[i]
	}
}

func (l *Tanh) Params() []ParamDescriptor { return nil }

func (l *Tanh) Store() map[string]any {
	return map[string]any{"type": l.Type(), "sx": l.shape.W, "sy": l.shape.H, "depth": l.shape.D}
}

func (l *Tanh) Load(m map[string]any) {
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *Tanh) Reset() { l.x, l.lastOut = nil, nil }

func (l *Tanh) Type() string { return "tanh" }

func (l *Tanh) InShape() Shape  { return l.shape }
func (l *Tanh) OutShape() Shape { return l.shape }
