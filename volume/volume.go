// Package volume implements the Volume tensor: a rectangular (width,
// height, depth) grid of float64 values paired with a same-shaped
// gradient buffer. It is the only numeric buffer type the rest of the
// convnet runtime operates on — layers read and write Volumes, the
// optimizer family mutates their value arrays from their gradient
// arrays, and the serialization package flattens them to JSON.
package volume

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/deepvolume/convnet/nnerrors"
)

// Volume is a 3-D buffer of values with a parallel buffer of gradients.
// Shape is fixed once a Volume is constructed, except that Augment
// replaces it with the crop size. W may alias another
// Volume's backing array (see Alias); Dw is always owned.
type Volume struct {
	Width, Height, Depth, Length int

	W  []float64
	Dw []float64

	owned bool
}

func shapeLen(w, h, d int) int {
	if w <= 0 || h <= 0 || d <= 0 {
		panic(nnerrors.NewShapeError("volume.New", []int{1, 1, 1}, []int{w, h, d}))
	}
	return w * h * d
}

// New allocates a Volume of the given shape with values drawn from a
// Gaussian distribution scaled by 1/sqrt(length), the default weight
// initialization used for layer parameters.
func New(w, h, d int) *Volume {
	n := shapeLen(w, h, d)
	v := &Volume{Width: w, Height: h, Depth: d, Length: n, owned: true}
	v.W = make([]float64, n)
	v.Dw = make([]float64, n)
	scale := 1.0 / math.Sqrt(float64(n))
	for i := range v.W {
		v.W[i] = rand.NormFloat64() * scale
	}
	return v
}

// NewConst allocates a Volume of the given shape with every value set to c.
func NewConst(w, h, d int, c float64) *Volume {
	n := shapeLen(w, h, d)
	v := &Volume{Width: w, Height: h, Depth: d, Length: n, owned: true}
	v.W = make([]float64, n)
	v.Dw = make([]float64, n)
	if c != 0 {
		for i := range v.W {
			v.W[i] = c
		}
	}
	return v
}

// NewZeros is NewConst(w, h, d, 0).
func NewZeros(w, h, d int) *Volume {
	return NewConst(w, h, d, 0)
}

// NewFromData allocates a Volume of the given shape, copying data as its
// initial values. len(data) must equal w*h*d.
func NewFromData(w, h, d int, data []float64) *Volume {
	n := shapeLen(w, h, d)
	if len(data) != n {
		panic(nnerrors.NewShapeError("volume.NewFromData", []int{n}, []int{len(data)}))
	}
	v := &Volume{Width: w, Height: h, Depth: d, Length: n, owned: true}
	v.W = make([]float64, n)
	copy(v.W, data)
	v.Dw = make([]float64, n)
	return v
}

// Alias constructs a Volume of the given shape that shares backing's value
// array instead of owning one. backing's length must equal w*h*d. The
// gradient array is always freshly allocated and owned.
func Alias(w, h, d int, backing *Volume) *Volume {
	n := shapeLen(w, h, d)
	if backing.Length != n {
		panic(nnerrors.NewShapeError("volume.Alias", []int{n}, []int{backing.Length}))
	}
	return &Volume{
		Width: w, Height: h, Depth: d, Length: n,
		W:     backing.W,
		Dw:    make([]float64, n),
		owned: false,
	}
}

// Owned reports whether this Volume owns its value array (as opposed to
// aliasing another Volume's).
func (v *Volume) Owned() bool { return v.owned }

func (v *Volume) index(x, y, d int) int {
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height || d < 0 || d >= v.Depth {
		panic(nnerrors.NewShapeError("volume.index", []int{v.Width, v.Height, v.Depth}, []int{x, y, d}))
	}
	return (v.Width*y+x)*v.Depth + d
}

// Get reads the value at (x, y, d).
func (v *Volume) Get(x, y, d int) float64 { return v.W[v.index(x, y, d)] }

// Set writes value to (x, y, d).
func (v *Volume) Set(x, y, d int, value float64) { v.W[v.index(x, y, d)] = value }

// Add adds value to the existing value at (x, y, d).
func (v *Volume) Add(x, y, d int, value float64) { v.W[v.index(x, y, d)] += value }

// GetFlat reads the value at flat index i.
func (v *Volume) GetFlat(i int) float64 { return v.W[i] }

// SetFlat writes value at flat index i.
func (v *Volume) SetFlat(i int, value float64) { v.W[i] = value }

// GetGrad reads the gradient at (x, y, d).
func (v *Volume) GetGrad(x, y, d int) float64 { return v.Dw[v.index(x, y, d)] }

// SetGrad writes the gradient at (x, y, d).
func (v *Volume) SetGrad(x, y, d int, value float64) { v.Dw[v.index(x, y, d)] = value }

// AddGrad accumulates into the gradient at (x, y, d).
func (v *Volume) AddGrad(x, y, d int, value float64) { v.Dw[v.index(x, y, d)] += value }

// GetGradFlat reads the gradient at flat index i.
func (v *Volume) GetGradFlat(i int) float64 { return v.Dw[i] }

// AddGradFlat accumulates value into the gradient at flat index i.
func (v *Volume) AddGradFlat(i int, value float64) { v.Dw[i] += value }

// ZeroGrads resets every gradient entry to zero.
func (v *Volume) ZeroGrads() {
	for i := range v.Dw {
		v.Dw[i] = 0
	}
}

// AddFrom adds other's values into this Volume's values element-wise.
// Shapes must match.
func (v *Volume) AddFrom(other *Volume) {
	if other.Length != v.Length {
		panic(nnerrors.NewShapeError("volume.AddFrom", []int{v.Length}, []int{other.Length}))
	}
	floats.Add(v.W, other.W)
}

// AddScaledFrom adds alpha*other's values into this Volume's values
// element-wise. Shapes must match.
func (v *Volume) AddScaledFrom(other *Volume, alpha float64) {
	if other.Length != v.Length {
		panic(nnerrors.NewShapeError("volume.AddScaledFrom", []int{v.Length}, []int{other.Length}))
	}
	floats.AddScaled(v.W, alpha, other.W)
}

// CopyFrom replaces this Volume's values and gradients with other's.
// Shapes must match. This is the structural-clone answer to the
// "CopyFrom" Open Question in the spec: a direct slice copy rather than
// a serialize/deserialize round trip.
func (v *Volume) CopyFrom(other *Volume) {
	if other.Length != v.Length {
		panic(nnerrors.NewShapeError("volume.CopyFrom", []int{v.Length}, []int{other.Length}))
	}
	copy(v.W, other.W)
	copy(v.Dw, other.Dw)
}

// Clone returns a deep, independently-owned copy of this Volume.
func (v *Volume) Clone() *Volume {
	c := &Volume{Width: v.Width, Height: v.Height, Depth: v.Depth, Length: v.Length, owned: true}
	c.W = make([]float64, v.Length)
	c.Dw = make([]float64, v.Length)
	copy(c.W, v.W)
	copy(c.Dw, v.Dw)
	return c
}

// SwapData exchanges this Volume's value and gradient arrays with
// other's. Both must own their arrays.
func (v *Volume) SwapData(other *Volume) {
	v.W, other.W = other.W, v.W
	v.Dw, other.Dw = other.Dw, v.Dw
}

// MaxColumn returns the flat index of the largest value, used for
// classification predictions.
func (v *Volume) MaxColumn() int {
	best := 0
	bestVal := v.W[0]
	for i, w := range v.W {
		if w > bestVal {
			bestVal = w
			best = i
		}
	}
	return best
}

// SampledColumn treats the values as an (unnormalized) probability
// distribution and samples a flat index proportionally. If the
// cumulative sum never exceeds the random draw (an empty or
// all-zero distribution), it returns the last index.
func (v *Volume) SampledColumn() int {
	r := rand.Float64()
	x := 0.0
	for i, w := range v.W {
		x += w
		if x > r {
			return i
		}
	}
	return v.Length - 1
}

// Augment applies random-crop-plus-flip data augmentation in place: the
// contents are replaced by the crop x crop x depth subregion at (dx,
// dy) (out-of-bounds source locations read as zero), then mirrored along
// the x axis if flip is true. dx == -1 or dy == -1 selects a uniform
// random offset in [0, width-crop) / [0, height-crop) respectively.
// Only meaningful on an owned Volume.
func (v *Volume) Augment(crop, dx, dy int, flip bool) {
	if !v.owned {
		panic("volume: cannot augment an aliased volume")
	}
	if dx == -1 {
		dx = 0
		if v.Width > crop {
			dx = rand.Intn(v.Width - crop)
		}
	}
	if dy == -1 {
		dy = 0
		if v.Height > crop {
			dy = rand.Intn(v.Height - crop)
		}
	}

	if crop != v.Width || dx != 0 || dy != 0 {
		cropped := NewZeros(crop, crop, v.Depth)
		for x := 0; x < crop; x++ {
			for y := 0; y < crop; y++ {
				sx, sy := x+dx, y+dy
				if sx < 0 || sx >= v.Width || sy < 0 || sy >= v.Height {
					continue
				}
				for d := 0; d < v.Depth; d++ {
					cropped.Set(x, y, d, v.Get(sx, sy, d))
				}
			}
		}
		v.Width, v.Height, v.Depth, v.Length = crop, crop, v.Depth, cropped.Length
		v.SwapData(cropped)
	}

	if flip {
		flipped := NewZeros(v.Width, v.Height, v.Depth)
		for x := 0; x < v.Width; x++ {
			for y := 0; y < v.Height; y++ {
				for d := 0; d < v.Depth; d++ {
					flipped.Set(x, y, d, v.Get(v.Width-x-1, y, d))
				}
			}
		}
		v.SwapData(flipped)
	}
}

func (v *Volume) String() string {
	return fmt.Sprintf("Volume(%dx%dx%d)", v.Width, v.Height, v.Depth)
}
