package layer

import (
	"math"

	"github.com/deepvolume/convnet/volume"
)

// Recurrent unrolls a single vanilla RNN cell over a fixed number of
// timesteps: the input volume is a flattened sequence of steps chunks of
// size perStepInput, and the output is the concatenation of all hidden
// states (steps chunks of size n). Each step applies
// h_t = tanh(W_ih*x_t + W_hh*h_(t-1) + b), with h_0 the zero vector.
type Recurrent struct {
	n             int
	steps         int
	perStepInput  int
	l1Mul, l2Mul  float64

	in  Shape
	out Shape

	weightIH *volume.Volume // (1,1,perStepInput*n), row-major [input][hidden]
	weightHH *volume.Volume // (1,1,n*n)
	bias     *volume.Volume // (1,1,n)

	x       *volume.Volume
	lastOut *volume.Volume
	hidden  []*volume.Volume // steps+1 cached hidden states, hidden[0]=zero
}

// NewRecurrent declares a recurrent layer with n hidden units unrolled
// over steps timesteps. l1Mul/l2Mul are the decay multipliers applied to
// both weight matrices.
func NewRecurrent(n, steps int, l1Mul, l2Mul float64) *Recurrent {
	return &Recurrent{n: n, steps: steps, l1Mul: l1Mul, l2Mul: l2Mul}
}

func (l *Recurrent) Init(in Shape) Shape {
	l.in = in
	l.perStepInput = in.Length() / l.steps
	l.weightIH = volume.New(1, 1, l.perStepInput*l.n)
	l.weightHH = volume.New(1, 1, l.n*l.n)
	l.bias = volume.NewZeros(1, 1, l.n)
	l.out = Shape{W: 1, H: 1, D: l.n * l.steps}
	return l.out
}

func (l *Recurrent) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(1, 1, l.out.D)

	l.hidden = make([]*volume.Volume, l.steps+1)
	l.hidden[0] = volume.NewZeros(1, 1, l.n)

	for t := 0; t < l.steps; t++ {
		pre := make([]float64, l.n)
		prevHidden := l.hidden[t]
		for h := 0; h < l.n; h++ {
			var a float64
			for i := 0; i < l.perStepInput; i++ {
				a += l.weightIH.W[i*l.n+h] * x.W[t*l.perStepInput+i]
			}
			for j := 0; j < l.n; j++ {
				a += l.weightHH.W[j*l.n+h] * prevHidden.W[j]
			}
			a += l.bias.W[h]
			pre[h] = a
		}

		step := volume.NewZeros(1, 1, l.n)
		for h := 0; h < l.n; h++ {
			step.W[h] = math.Tanh(pre[h])
		}
		l.hidden[t+1] = step
		copy(out.W[t*l.n:(t+1)*l.n], step.W)
	}

	l.lastOut = out
	return out
}

func (l *Recurrent) Backward() {
	l.x.ZeroGrads()
	l.weightIH.ZeroGrads()
	l.weightHH.ZeroGrads()
	l.bias.ZeroGrads()

	gradNextHidden := make([]float64, l.n)

	for t := l.steps - 1; t >= 0; t-- {
		gradOut := l.lastOut.Dw[t*l.n : (t+1)*l.n]
		gradH := make([]float64, l.n)
		for h := 0; h < l.n; h++ {
			gradH[h] = gradOut[h] + gradNextHidden[h]
		}

		gradPre := make([]float64, l.n)
		step := l.hidden[t+1]
		for h := 0; h < l.n; h++ {
			s := step.W[h]
			gradPre[h] = gradH[h] * (1 - s*s)
		}

		prevHidden := l.hidden[t]
		for h := 0; h < l.n; h++ {
			l.bias.Dw[h] += gradPre[h]
			for i := 0; i < l.perStepInput; i++ {
				l.weightIH.Dw[i*l.n+h] += gradPre[h] * l.x.W[t*l.perStepInput+i]
				l.x.Dw[t*l.perStepInput+i] += gradPre[h] * l.weightIH.W[i*l.n+h]
			}
			for j := 0; j < l.n; j++ {
				l.weightHH.Dw[j*l.n+h] += gradPre[h] * prevHidden.W[j]
			}
		}

		nextGrad := make([]float64, l.n)
		for j := 0; j < l.n; j++ {
			var a float64
			for h := 0; h < l.n; h++ {
				a += l.weightHH.W[j*l.n+h] * gradPre[h]
			}
			nextGrad[j] = a
		}
		gradNextHidden = nextGrad
	}
}

func (l *Recurrent) Params() []ParamDescriptor {
	return []ParamDescriptor{
		{Param: l.weightIH, L1Mul: l.l1Mul, L2Mul: l.l2Mul},
		{Param: l.weightHH, L1Mul: l.l1Mul, L2Mul: l.l2Mul},
		{Param: l.bias, L1Mul: 0, L2Mul: 0},
	}
}

func (l *Recurrent) Store() map[string]any {
	return map[string]any{
		"type":          l.Type(),
		"num_neurons":   l.n,
		"steps":         l.steps,
		"per_step_input": l.perStepInput,
		"l1_decay_mul":  l.l1Mul,
		"l2_decay_mul":  l.l2Mul,
		"weight_ih":     storeVolume(l.weightIH),
		"weight_hh":     storeVolume(l.weightHH),
		"bias":          storeVolume(l.bias),
	}
}

func (l *Recurrent) Load(m map[string]any) {
	l.n = intField(m, "num_neurons")
	l.steps = intField(m, "steps")
	l.perStepInput = intField(m, "per_step_input")
	l.l1Mul = floatFieldDefault(m, "l1_decay_mul", 0)
	l.l2Mul = floatFieldDefault(m, "l2_decay_mul", 1)

	ihMap, _ := m["weight_ih"].(map[string]any)
	l.weightIH = loadVolume(ihMap, 1, 1, l.perStepInput*l.n)
	hhMap, _ := m["weight_hh"].(map[string]any)
	l.weightHH = loadVolume(hhMap, 1, 1, l.n*l.n)
	biasMap, _ := m["bias"].(map[string]any)
	l.bias = loadVolume(biasMap, 1, 1, l.n)

	l.in = Shape{W: 1, H: 1, D: l.perStepInput * l.steps}
	l.out = Shape{W: 1, H: 1, D: l.n * l.steps}
}

func (l *Recurrent) Reset() {
	l.x, l.lastOut = nil, nil
	l.hidden = nil
}

func (l *Recurrent) Type() string { return "recurrent" }

func (l *Recurrent) InShape() Shape  { return l.in }
func (l *Recurrent) OutShape() Shape { return l.out }
