package layer

import "github.com/deepvolume/convnet/volume"

// Input is a pass-through layer that declares the network's input
// volume shape. It must be the first layer added to a Network.
type Input struct {
	shape Shape
	x     *volume.Volume
}

// NewInput declares an input volume of the given shape.
func NewInput(w, h, d int) *Input {
	return &Input{shape: Shape{W: w, H: h, D: d}}
}

// Init ignores in (Input has no predecessor) and returns its own
// declared shape.
func (l *Input) Init(in Shape) Shape {
	return l.shape
}

func (l *Input) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	return x
}

func (l *Input) Backward() {}

func (l *Input) Params() []ParamDescriptor { return nil }

func (l *Input) Store() map[string]any {
	return map[string]any{
		"type": l.Type(),
		"sx":   l.shape.W,
		"sy":   l.shape.H,
		"depth": l.shape.D,
	}
}

func (l *Input) Load(m map[string]any) {
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *Input) Reset() { l.x = nil }

func (l *Input) Type() string { return "input" }

func (l *Input) InShape() Shape  { return l.shape }
func (l *Input) OutShape() Shape { return l.shape }
