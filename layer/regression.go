package layer

import "github.com/deepvolume/convnet/volume"

// Regression is the identity function forward; its loss is the sum of
// squared errors against a target vector, a single labeled index, or (in
// autoencoder mode) the network's own input.
type Regression struct {
	n int

	shape Shape
	x     *volume.Volume
}

func NewRegression(n int) *Regression { return &Regression{n: n} }

func (l *Regression) Init(in Shape) Shape {
	l.shape = Shape{W: 1, H: 1, D: l.n}
	return l.shape
}

func (l *Regression) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	return x
}

func (l *Regression) Backward() {}

// BackwardLoss supports two target shapes: a full target vector, or a
// single labeled index (target.Class with target.Vec carrying just that
// one value at index 0). Reconstruct-self targets are resolved by the
// network into a vector target against the original network input
// before reaching here.
func (l *Regression) BackwardLoss(target Target) float64 {
	l.x.ZeroGrads()
	var loss float64

	switch target.Kind {
	case VectorTargetKind:
		if target.Vec.Length == l.x.Length {
			for i := range l.x.W {
				diff := l.x.W[i] - target.Vec.W[i]
				l.x.Dw[i] += diff
				loss += 0.5 * diff * diff
			}
		} else {
			// single labeled index: target.Vec holds one value, target.Class
			// names which output dimension it labels.
			i := target.Class
			diff := l.x.W[i] - target.Vec.W[0]
			l.x.Dw[i] += diff
			loss += 0.5 * diff * diff
		}
	case ClassIndexTarget:
		i := target.Class
		diff := l.x.W[i]
		l.x.Dw[i] += diff
		loss += 0.5 * diff * diff
	}
	return loss
}

func (l *Regression) Params() []ParamDescriptor { return nil }

func (l *Regression) Store() map[string]any {
	return map[string]any{"type": l.Type(), "num_neurons": l.n}
}

func (l *Regression) Load(m map[string]any) {
	l.n = intField(m, "num_neurons")
	l.shape = Shape{W: 1, H: 1, D: l.n}
}

func (l *Regression) Reset() { l.x = nil }

func (l *Regression) Type() string { return "regression" }

func (l *Regression) InShape() Shape  { return l.shape }
func (l *Regression) OutShape() Shape { return l.shape }
