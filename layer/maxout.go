package layer

import "github.com/deepvolume/convnet/volume"

// Maxout partitions the depth axis into groups of size groupSize and
// outputs the per-group maximum; backward routes the full gradient to
// whichever group member won.
type Maxout struct {
	groupSize int

	in  Shape
	out Shape

	x        *volume.Volume
	lastOut  *volume.Volume
	switches []int // per output cell, the winning input depth
}

func NewMaxout(groupSize int) *Maxout { return &Maxout{groupSize: groupSize} }

func (l *Maxout) Init(in Shape) Shape {
	l.in = in
	l.out = Shape{W: in.W, H: in.H, D: in.D / l.groupSize}
	return l.out
}

func (l *Maxout) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.out.W, l.out.H, l.out.D)
	n := l.out.W * l.out.H * l.out.D
	if len(l.switches) != n {
		l.switches = make([]int, n)
	}

	cell := 0
	for ax := 0; ax < l.out.W; ax++ {
		for ay := 0; ay < l.out.H; ay++ {
			for og := 0; og < l.out.D; og++ {
				best := -1e300
				bestD := og * l.groupSize
				for g := 0; g < l.groupSize; g++ {
					d := og*l.groupSize + g
					v := x.Get(ax, ay, d)
					if v > best {
						best = v
						bestD = d
					}
				}
				l.switches[cell] = bestD
				out.Set(ax, ay, og, best)
				cell++
			}
		}
	}
	l.lastOut = out
	return out
}

func (l *Maxout) Backward() {
	l.x.ZeroGrads()
	cell := 0
	for ax := 0; ax < l.out.W; ax++ {
		for ay := 0; ay < l.out.H; ay++ {
			for og := 0; og < l.out.D; og++ {
				chain := l.lastOut.GetGrad(ax, ay, og)
				l.x.AddGrad(ax, ay, l.switches[cell], chain)
				cell++
			}
		}
	}
}

func (l *Maxout) Params() []ParamDescriptor { return nil }

func (l *Maxout) Store() map[string]any {
	return map[string]any{
		"type":       l.Type(),
		"group_size": l.groupSize,
		"in_sx":      l.in.W,
		"in_sy":      l.in.H,
		"in_depth":   l.in.D,
	}
}

// Load restores groupSize and re-derives the output shape via Init
// rather than persisting it separately, so the two can never drift
// apart.
func (l *Maxout) Load(m map[string]any) {
	l.groupSize = intFieldDefault(m, "group_size", 2)
	in := Shape{W: intField(m, "in_sx"), H: intField(m, "in_sy"), D: intField(m, "in_depth")}
	l.Init(in)
}

func (l *Maxout) Reset() {
	l.x, l.lastOut = nil, nil
	l.switches = nil
}

func (l *Maxout) Type() string { return "maxout" }

func (l *Maxout) InShape() Shape  { return l.in }
func (l *Maxout) OutShape() Shape { return l.out }
