package layer

import "github.com/deepvolume/convnet/volume"

// SVM scores multiclass hinge loss against a class index: every
// incorrect class scoring within margin 1 of the correct class
// contributes +1 to its own gradient and -1 to the correct class's.
type SVM struct {
	classCount int

	shape Shape
	x     *volume.Volume
}

func NewSVM(classCount int) *SVM { return &SVM{classCount: classCount} }

func (l *SVM) Init(in Shape) Shape {
	l.shape = Shape{W: 1, H: 1, D: l.classCount}
	return l.shape
}

func (l *SVM) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	return x
}

func (l *SVM) Backward() {}

func (l *SVM) BackwardLoss(target Target) float64 {
	l.x.ZeroGrads()
	correct := target.Class
	correctScore := l.x.W[correct]

	var loss float64
	for i := 0; i < l.classCount; i++ {
		if i == correct {
			continue
		}
		margin := l.x.W[i] - correctScore + 1
		if margin > 0 {
			l.x.Dw[i] += 1
			l.x.Dw[correct] -= 1
			loss += margin
		}
	}
	return loss
}

func (l *SVM) Params() []ParamDescriptor { return nil }

func (l *SVM) Store() map[string]any {
	return map[string]any{"type": l.Type(), "num_classes": l.classCount}
}

func (l *SVM) Load(m map[string]any) {
	l.classCount = intField(m, "num_classes")
	l.shape = Shape{W: 1, H: 1, D: l.classCount}
}

func (l *SVM) Reset() { l.x = nil }

func (l *SVM) Type() string { return "svm" }

func (l *SVM) InShape() Shape  { return l.shape }
func (l *SVM) OutShape() Shape { return l.shape }
