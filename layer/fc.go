package layer

import (
	"gonum.org/v1/gonum/floats"

	"github.com/deepvolume/convnet/volume"
)

// FullyConnected computes y_i = sum_j w_ij*x_j + b_i for n output
// neurons over a flattened input.
type FullyConnected struct {
	n        int
	in       Shape
	l1Mul    float64
	l2Mul    float64
	biasPref float64
	filters  []*volume.Volume // n volumes, each shape (1,1,inLength)
	biases   *volume.Volume   // shape (1,1,n)

	x   *volume.Volume
	out *volume.Volume
}

// NewFullyConnected declares a fully connected layer of n output
// neurons. l1Mul/l2Mul are the decay multipliers applied to the weight
// (not bias) parameter tensors. biasPref sets the initial bias value for
// every neuron.
func NewFullyConnected(n int, l1Mul, l2Mul, biasPref float64) *FullyConnected {
	return &FullyConnected{n: n, l1Mul: l1Mul, l2Mul: l2Mul, biasPref: biasPref}
}

func (l *FullyConnected) Init(in Shape) Shape {
	l.in = in
	inLen := in.Length()
	l.filters = make([]*volume.Volume, l.n)
	for i := range l.filters {
		l.filters[i] = volume.New(1, 1, inLen)
	}
	l.biases = volume.NewConst(1, 1, l.n, l.biasPref)
	return Shape{W: 1, H: 1, D: l.n}
}

func (l *FullyConnected) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(1, 1, l.n)
	for i, f := range l.filters {
		out.W[i] = floats.Dot(f.W, x.W) + l.biases.W[i]
	}
	l.out = out
	return out
}

func (l *FullyConnected) Backward() {
	x := l.x
	for i, f := range l.filters {
		chain := l.out.Dw[i]
		floats.AddScaled(x.Dw, chain, f.W)
		floats.AddScaled(f.Dw, chain, x.W)
		l.biases.Dw[i] += chain
	}
}

func (l *FullyConnected) Params() []ParamDescriptor {
	out := make([]ParamDescriptor, 0, len(l.filters)+1)
	for _, f := range l.filters {
		out = append(out, ParamDescriptor{Param: f, L1Mul: l.l1Mul, L2Mul: l.l2Mul})
	}
	out = append(out, ParamDescriptor{Param: l.biases, L1Mul: 0, L2Mul: 0})
	return out
}

func (l *FullyConnected) Store() map[string]any {
	filters := make([]map[string]any, len(l.filters))
	for i, f := range l.filters {
		filters[i] = storeVolume(f)
	}
	return map[string]any{
		"type":        l.Type(),
		"num_inputs":  l.in.Length(),
		"num_neurons": l.n,
		"l1_decay_mul": l.l1Mul,
		"l2_decay_mul": l.l2Mul,
		"filters":     filters,
		"biases":      storeVolume(l.biases),
	}
}

func (l *FullyConnected) Load(m map[string]any) {
	l.n = intField(m, "num_neurons")
	inLen := intField(m, "num_inputs")
	l.l1Mul = floatFieldDefault(m, "l1_decay_mul", 0)
	l.l2Mul = floatFieldDefault(m, "l2_decay_mul", 1)

	rawFilters, _ := m["filters"].([]any)
	l.filters = make([]*volume.Volume, len(rawFilters))
	for i, rf := range rawFilters {
		fm, _ := rf.(map[string]any)
		l.filters[i] = loadVolume(fm, 1, 1, inLen)
	}
	biasMap, _ := m["biases"].(map[string]any)
	l.biases = loadVolume(biasMap, 1, 1, l.n)
	l.in = Shape{W: 1, H: 1, D: inLen}
}

func (l *FullyConnected) Reset() {
	l.x = nil
	l.out = nil
}

func (l *FullyConnected) Type() string { return "fc" }

func (l *FullyConnected) InShape() Shape  { return l.in }
func (l *FullyConnected) OutShape() Shape { return Shape{W: 1, H: 1, D: l.n} }
