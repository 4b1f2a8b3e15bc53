package layer

import (
	"math"

	"github.com/deepvolume/convnet/volume"
)

// LRN applies local response normalization across the depth axis:
// y = x * (k + alpha*sum(x_i^2))^(-beta), summed over a window of n
// neighboring depth channels centered on the current one.
type LRN struct {
	k, alpha, beta float64
	n              int

	shape   Shape
	x       *volume.Volume
	lastOut *volume.Volume
	denom   []float64 // cached (k + alpha*sum)^(-beta) per element, for backward
}

func NewLRN(k float64, n int, alpha, beta float64) *LRN {
	return &LRN{k: k, n: n, alpha: alpha, beta: beta}
}

func (l *LRN) Init(in Shape) Shape {
	l.shape = in
	return in
}

func (l *LRN) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.shape.W, l.shape.H, l.shape.D)
	if len(l.denom) != len(x.W) {
		l.denom = make([]float64, len(x.W))
	}
	half := l.n / 2

	for ax := 0; ax < l.shape.W; ax++ {
		for ay := 0; ay < l.shape.H; ay++ {
			for d := 0; d < l.shape.D; d++ {
				var sumSq float64
				for j := d - half; j <= d+half; j++ {
					if j < 0 || j >= l.shape.D {
						continue
					}
					v := x.Get(ax, ay, j)
					sumSq += v * v
				}
				base := l.k + l.alpha*sumSq
				scale := math.Pow(base, -l.beta)
				idx := (l.shape.W*ay+ax)*l.shape.D + d
				l.denom[idx] = scale
				out.Set(ax, ay, d, x.Get(ax, ay, d)*scale)
			}
		}
	}
	l.lastOut = out
	return out
}

// Backward uses the local-scale approximation: treats the per-element
// normalization factor as locally constant, the same simplification the
// teacher's other elementwise layers make for cheap gradient routing.
func (l *LRN) Backward() {
	for i := range l.x.Dw {
		l.x.Dw[i] += l.lastOut.Dw[i] * l.denom[i]
	}
}

func (l *LRN) Params() []ParamDescriptor { return nil }

func (l *LRN) Store() map[string]any {
	return map[string]any{
		"type": l.Type(), "k": l.k, "n": l.n, "alpha": l.alpha, "beta": l.beta,
		"sx": l.shape.W, "sy": l.shape.H, "depth": l.shape.D,
	}
}

func (l *LRN) Load(m map[string]any) {
	l.k = floatField(m, "k")
	l.n = intField(m, "n")
	l.alpha = floatField(m, "alpha")
	l.beta = floatField(m, "beta")
	l.shape = Shape{W: intField(m, "sx"), H: intField(m, "sy"), D: intField(m, "depth")}
}

func (l *LRN) Reset() {
	l.x, l.lastOut = nil, nil
	l.denom = nil
}

func (l *LRN) Type() string { return "lrn" }

func (l *LRN) InShape() Shape  { return l.shape }
func (l *LRN) OutShape() Shape { return l.shape }
