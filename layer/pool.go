package layer

import "github.com/deepvolume/convnet/volume"

// Pool performs spatial max-pooling: each output cell holds the maximum
// value in its poolW x poolH window, and Backward routes the full
// gradient to whichever input cell won that maximum.
type Pool struct {
	poolW, poolH, stride, pad int

	in  Shape
	out Shape

	x       *volume.Volume
	lastOut *volume.Volume
	// switchX/switchY record, per output cell, the input coordinates that
	// won the max — one entry per (ax, ay, depth) output cell.
	switchX, switchY []int
}

// NewPool declares a max-pool layer with the given window and stride.
// pad defaults to 0.
func NewPool(poolW, poolH, stride int) *Pool {
	return &Pool{poolW: poolW, poolH: poolH, stride: stride}
}

// WithPad sets the zero-padding applied to each spatial edge and returns
// the receiver for chaining.
func (l *Pool) WithPad(pad int) *Pool {
	l.pad = pad
	return l
}

func (l *Pool) Init(in Shape) Shape {
	l.in = in
	outW := (in.W+l.pad*2-l.poolW)/l.stride + 1
	outH := (in.H+l.pad*2-l.poolH)/l.stride + 1
	l.out = Shape{W: outW, H: outH, D: in.D}
	return l.out
}

func (l *Pool) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.out.W, l.out.H, l.out.D)
	n := l.out.W * l.out.H * l.out.D
	if len(l.switchX) != n {
		l.switchX = make([]int, n)
		l.switchY = make([]int, n)
	}

	cell := 0
	for depth := 0; depth < l.out.D; depth++ {
		x0 := -l.pad
		for ax := 0; ax < l.out.W; ax, x0 = ax+1, x0+l.stride {
			y0 := -l.pad
			for ay := 0; ay < l.out.H; ay, y0 = ay+1, y0+l.stride {
				best := -1e300
				bestX, bestY := x0, y0
				for fx := 0; fx < l.poolW; fx++ {
					ox := x0 + fx
					if ox < 0 || ox >= l.x.Width {
						continue
					}
					for fy := 0; fy < l.poolH; fy++ {
						oy := y0 + fy
						if oy < 0 || oy >= l.x.Height {
							continue
						}
						v := l.x.Get(ox, oy, depth)
						if v > best {
							best = v
							bestX, bestY = ox, oy
						}
					}
				}
				idx := l.switchIndex(ax, ay, depth)
				l.switchX[idx] = bestX
				l.switchY[idx] = bestY
				out.Set(ax, ay, depth, best)
				cell++
			}
		}
	}
	l.lastOut = out
	return out
}

func (l *Pool) switchIndex(ax, ay, depth int) int {
	return (l.out.W*ay+ax)*l.out.D + depth
}

func (l *Pool) Backward() {
	l.x.ZeroGrads()
	for depth := 0; depth < l.out.D; depth++ {
		for ax := 0; ax < l.out.W; ax++ {
			for ay := 0; ay < l.out.H; ay++ {
				idx := l.switchIndex(ax, ay, depth)
				chain := l.lastOut.GetGrad(ax, ay, depth)
				l.x.AddGrad(l.switchX[idx], l.switchY[idx], depth, chain)
			}
		}
	}
}

func (l *Pool) Params() []ParamDescriptor { return nil }

func (l *Pool) Store() map[string]any {
	return map[string]any{
		"type":        l.Type(),
		"sx":          l.poolW,
		"sy":          l.poolH,
		"stride":      l.stride,
		"pad":         l.pad,
		"in_sx":       l.in.W,
		"in_sy":       l.in.H,
		"in_depth":    l.in.D,
	}
}

// Load restores the window/stride/pad and re-derives the output shape
// via Init's own formula rather than persisting it separately, so the
// two can never drift apart.
func (l *Pool) Load(m map[string]any) {
	l.poolW = intField(m, "sx")
	l.poolH = intField(m, "sy")
	l.stride = intFieldDefault(m, "stride", 2)
	l.pad = intFieldDefault(m, "pad", 0)
	in := Shape{W: intField(m, "in_sx"), H: intField(m, "in_sy"), D: intField(m, "in_depth")}
	l.Init(in)
}

func (l *Pool) Reset() {
	l.x, l.lastOut = nil, nil
	l.switchX, l.switchY = nil, nil
}

func (l *Pool) Type() string { return "pool" }

func (l *Pool) InShape() Shape  { return l.in }
func (l *Pool) OutShape() Shape { return l.out }
