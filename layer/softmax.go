package layer

import (
	"math"

	"github.com/deepvolume/convnet/volume"
)

// Softmax converts logits to a probability vector (max-subtract, exp,
// normalize) and scores cross-entropy loss against an integer class
// index.
type Softmax struct {
	classCount int

	shape Shape
	x     *volume.Volume
	probs *volume.Volume
}

func NewSoftmax(classCount int) *Softmax { return &Softmax{classCount: classCount} }

func (l *Softmax) Init(in Shape) Shape {
	l.shape = Shape{W: 1, H: 1, D: l.classCount}
	return l.shape
}

func (l *Softmax) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(1, 1, l.classCount)

	maxVal := x.W[0]
	for _, v := range x.W {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range x.W {
		e := math.Exp(v - maxVal)
		out.W[i] = e
		sum += e
	}
	for i := range out.W {
		out.W[i] /= sum
	}
	l.probs = out
	return out
}

func (l *Softmax) Backward() {}

// BackwardLoss sets the input gradient to probs - one_hot(target.Class)
// and returns the cross-entropy loss -log(probs[target.Class]).
func (l *Softmax) BackwardLoss(target Target) float64 {
	l.x.ZeroGrads()
	for i, p := range l.probs.W {
		indicator := 0.0
		if i == target.Class {
			indicator = 1.0
		}
		l.x.Dw[i] += p - indicator
	}
	const eps = 1e-30
	p := l.probs.W[target.Class]
	if p < eps {
		p = eps
	}
	return -math.Log(p)
}

func (l *Softmax) Params() []ParamDescriptor { return nil }

func (l *Softmax) Store() map[string]any {
	return map[string]any{"type": l.Type(), "num_classes": l.classCount}
}

func (l *Softmax) Load(m map[string]any) {
	l.classCount = intField(m, "num_classes")
	l.shape = Shape{W: 1, H: 1, D: l.classCount}
}

func (l *Softmax) Reset() { l.x, l.probs = nil, nil }

func (l *Softmax) Type() string { return "softmax" }

func (l *Softmax) InShape() Shape  { return l.shape }
func (l *Softmax) OutShape() Shape { return l.shape }
