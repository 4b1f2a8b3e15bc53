package layer

import "github.com/deepvolume/convnet/volume"

// Relu applies the elementwise rectifier max(0, x).
type Relu struct {
	shape   Shape
	x       *volume.Volume
	lastOut *volume.Volume
}

func NewRelu() *Relu { return &Relu{} }

func (l *Relu) Init(in Shape) Shape {
	l.shape = in
	return in
}

func (l *Relu) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.shape.W, l.shape.H, l.shape.D)
	for i, v := range x.W {
		if v > 0 {
			out.W[i] = v
		}
	}
	l.lastOut = out
	return out
}

func (l *Relu) Backward() {
	for i := range l.x.Dw {
		if l.lastOut.W[i] > 0 {
			l.x.Dw[i] += l.lastOut.Dw[i]
		}
	}
}

func (l *Relu) Params() []ParamDescriptor { return nil }

func (l *Relu) Store() map[string]any {
	return map[string]any{"type": l.Type(), "sx": l.shape.W, "sy": l.shape.H, "depth": l.shape.D}
}

func (l *Relu) Load(m map[string]any) {
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *Relu) Reset() { l.x, l.lastOut = nil, nil }

func (l *Relu) Type() string { return "relu" }

func (l *Relu) InShape() Shape  { return l.shape }
func (l *Relu) OutShape() Shape { return l.shape }
