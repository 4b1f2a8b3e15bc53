package layer

import "github.com/deepvolume/convnet/volume"

// Conv computes a strided cross-correlation of a bank of learned filters
// against the input volume. The output is trimmed (never padded with a
// partial application) when the stride doesn't divide the input exactly.
type Conv struct {
	filterW, filterH, filterCount int
	stride                        int
	pad                           int
	l1Mul, l2Mul                  float64
	biasPref                      float64

	in  Shape
	out Shape

	filters []*volume.Volume // filterCount volumes, each (filterW,filterH,inDepth)
	biases  *volume.Volume   // (1,1,filterCount)

	x       *volume.Volume
	lastOut *volume.Volume
}

// NewConv declares a conv layer of filterCount filters, each
// filterW x filterH x (input depth). stride and pad default to 1 and 0;
// use WithStride/WithPad to override before Init.
func NewConv(filterW, filterH, filterCount int, l1Mul, l2Mul, biasPref float64) *Conv {
	return &Conv{
		filterW:     filterW,
		filterH:     filterH,
		filterCount: filterCount,
		stride:      1,
		pad:         0,
		l1Mul:       l1Mul,
		l2Mul:       l2Mul,
		biasPref:    biasPref,
	}
}

// WithStride sets the spatial stride and returns the receiver for chaining.
func (l *Conv) WithStride(stride int) *Conv {
	l.stride = stride
	return l
}

// WithPad sets the zero-padding applied to each spatial edge and returns
// the receiver for chaining.
func (l *Conv) WithPad(pad int) *Conv {
	l.pad = pad
	return l
}

func (l *Conv) Init(in Shape) Shape {
	l.in = in
	outW := (in.W+l.pad*2-l.filterW)/l.stride + 1
	outH := (in.H+l.pad*2-l.filterH)/l.stride + 1
	l.out = Shape{W: outW, H: outH, D: l.filterCount}

	l.filters = make([]*volume.Volume, l.filterCount)
	for i := range l.filters {
		l.filters[i] = volume.New(l.filterW, l.filterH, in.D)
	}
	l.biases = volume.NewConst(1, 1, l.filterCount, l.biasPref)
	return l.out
}

func (l *Conv) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	l.x = x
	out := volume.NewZeros(l.out.W, l.out.H, l.out.D)

	for depth := 0; depth < l.out.D; depth++ {
		filter := l.filters[depth]
		y := -l.pad
		for ay := 0; ay < l.out.H; ay, y = ay+1, y+l.stride {
			xx := -l.pad
			for ax := 0; ax < l.out.W; ax, xx = ax+1, xx+l.stride {
				var a float64
				for fy := 0; fy < l.filterH; fy++ {
					oy := y + fy
					if oy < 0 || oy >= x.Height {
						continue
					}
					for fx := 0; fx < l.filterW; fx++ {
						ox := xx + fx
						if ox < 0 || ox >= x.Width {
							continue
						}
						for fd := 0; fd < x.Depth; fd++ {
							a += filter.Get(fx, fy, fd) * x.Get(ox, oy, fd)
						}
					}
				}
				a += l.biases.W[depth]
				out.Set(ax, ay, depth, a)
			}
		}
	}
	l.lastOut = out
	return out
}

func (l *Conv) Backward() {
	out := l.lastOut
	x := l.x
	x.ZeroGrads()

	for depth := 0; depth < l.out.D; depth++ {
		filter := l.filters[depth]
		y := -l.pad
		for ay := 0; ay < l.out.H; ay, y = ay+1, y+l.stride {
			xx := -l.pad
			for ax := 0; ax < l.out.W; ax, xx = ax+1, xx+l.stride {
				chain := out.GetGrad(ax, ay, depth)
				for fy := 0; fy < l.filterH; fy++ {
					oy := y + fy
					if oy < 0 || oy >= x.Height {
						continue
					}
					for fx := 0; fx < l.filterW; fx++ {
						ox := xx + fx
						if ox < 0 || ox >= x.Width {
							continue
						}
						for fd := 0; fd < x.Depth; fd++ {
							filter.AddGrad(fx, fy, fd, x.Get(ox, oy, fd)*chain)
							x.AddGrad(ox, oy, fd, filter.Get(fx, fy, fd)*chain)
						}
					}
				}
				l.biases.Dw[depth] += chain
			}
		}
	}
}

func (l *Conv) Params() []ParamDescriptor {
	out := make([]ParamDescriptor, 0, len(l.filters)+1)
	for _, f := range l.filters {
		out = append(out, ParamDescriptor{Param: f, L1Mul: l.l1Mul, L2Mul: l.l2Mul})
	}
	out = append(out, ParamDescriptor{Param: l.biases, L1Mul: 0, L2Mul: 0})
	return out
}

func (l *Conv) Store() map[string]any {
	filters := make([]map[string]any, len(l.filters))
	for i, f := range l.filters {
		filters[i] = storeVolume(f)
	}
	return map[string]any{
		"type":         l.Type(),
		"sx":           l.filterW,
		"sy":           l.filterH,
		"stride":       l.stride,
		"pad":          l.pad,
		"in_depth":     l.filterCount,
		"input_depth":  l.in.D,
		"input_sx":     l.in.W,
		"input_sy":     l.in.H,
		"out_depth":    l.out.D,
		"out_sx":       l.out.W,
		"out_sy":       l.out.H,
		"l1_decay_mul": l.l1Mul,
		"l2_decay_mul": l.l2Mul,
		"filters":      filters,
		"biases":       storeVolume(l.biases),
	}
}

func (l *Conv) Load(m map[string]any) {
	l.filterW = intField(m, "sx")
	l.filterH = intField(m, "sy")
	l.stride = intFieldDefault(m, "stride", 1)
	l.pad = intFieldDefault(m, "pad", 0)
	l.filterCount = intField(m, "in_depth")
	inputDepth := intField(m, "input_depth")
	l.l1Mul = floatFieldDefault(m, "l1_decay_mul", 0)
	l.l2Mul = floatFieldDefault(m, "l2_decay_mul", 1)
	l.out = Shape{W: intField(m, "out_sx"), H: intField(m, "out_sy"), D: intField(m, "out_depth")}
	l.in = Shape{W: intField(m, "input_sx"), H: intField(m, "input_sy"), D: inputDepth}

	rawFilters, _ := m["filters"].([]any)
	l.filters = make([]*volume.Volume, l.filterCount)
	for i := 0; i < l.filterCount; i++ {
		if i < len(rawFilters) {
			fm, _ := rawFilters[i].(map[string]any)
			l.filters[i] = loadVolume(fm, l.filterW, l.filterH, inputDepth)
		} else {
			l.filters[i] = volume.New(l.filterW, l.filterH, inputDepth)
		}
	}
	biasMap, _ := m["biases"].(map[string]any)
	l.biases = loadVolume(biasMap, 1, 1, l.filterCount)
}

func (l *Conv) Reset() { l.x, l.lastOut = nil, nil }

func (l *Conv) Type() string { return "conv" }

func (l *Conv) InShape() Shape  { return l.in }
func (l *Conv) OutShape() Shape { return l.out }
