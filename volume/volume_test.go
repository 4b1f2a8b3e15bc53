package volume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShapeAndLength(t *testing.T) {
	v := New(3, 4, 5)
	assert.Equal(t, 3, v.Width)
	assert.Equal(t, 4, v.Height)
	assert.Equal(t, 5, v.Depth)
	assert.Equal(t, 60, v.Length)
	assert.Len(t, v.W, 60)
	assert.Len(t, v.Dw, 60)
}

func TestGetSetIndexMapping(t *testing.T) {
	v := NewZeros(2, 2, 3)
	v.Set(1, 0, 2, 9.0)
	// idx(x,y,d) = (width*y + x)*depth + d = (2*0+1)*3+2 = 5
	assert.Equal(t, 9.0, v.W[5])
	assert.Equal(t, 9.0, v.Get(1, 0, 2))
}

func TestGradientRoundTrip(t *testing.T) {
	v := NewZeros(1, 1, 4)
	v.AddGrad(0, 0, 1, 2.5)
	v.AddGrad(0, 0, 1, 1.0)
	assert.Equal(t, 3.5, v.GetGrad(0, 0, 1))
	v.ZeroGrads()
	assert.Equal(t, 0.0, v.GetGrad(0, 0, 1))
}

func TestAliasSharesValuesNotGradients(t *testing.T) {
	backing := NewFromData(1, 1, 4, []float64{1, 2, 3, 4})
	alias := Alias(2, 2, 1, backing)

	alias.Set(1, 1, 0, 99)
	require.Equal(t, 99.0, backing.W[3])

	alias.AddGrad(0, 0, 0, 5)
	assert.Equal(t, 0.0, backing.Dw[0], "gradients are never shared between alias and backing")
}

func TestAliasRejectsLengthMismatch(t *testing.T) {
	backing := NewZeros(1, 1, 3)
	assert.Panics(t, func() {
		Alias(2, 2, 1, backing)
	})
}

func TestCloneIsIndependent(t *testing.T) {
	v := NewFromData(1, 1, 2, []float64{1, 2})
	c := v.Clone()
	c.Set(0, 0, 0, 100)
	assert.Equal(t, 1.0, v.Get(0, 0, 0))
	assert.Equal(t, 100.0, c.Get(0, 0, 0))
}

func TestSwapData(t *testing.T) {
	a := NewFromData(1, 1, 2, []float64{1, 2})
	b := NewFromData(1, 1, 2, []float64{9, 9})
	a.SwapData(b)
	assert.Equal(t, []float64{9, 9}, a.W)
	assert.Equal(t, []float64{1, 2}, b.W)
}

func TestMaxColumn(t *testing.T) {
	v := NewFromData(1, 1, 4, []float64{0.1, 0.9, -3, 0.5})
	assert.Equal(t, 1, v.MaxColumn())
}

func TestAugmentCropNoFlip(t *testing.T) {
	// 4x4x1 input, idx(x,y) = y*4+x
	data := make([]float64, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*4+x] = float64(y*4 + x)
		}
	}
	v := NewFromData(4, 4, 1, data)
	v.Augment(2, 1, 1, false)

	require.Equal(t, 2, v.Width)
	require.Equal(t, 2, v.Height)
	// scan order (y major, x minor): [5, 6, 9, 10]
	assert.Equal(t, []float64{5, 6, 9, 10}, v.W)
}

func TestAugmentOutOfBoundsReadsZero(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	v := NewFromData(2, 2, 1, data)
	v.Augment(2, 1, 1, false)
	// only (0,0) maps to source (1,1) -> value 4; rest are OOB -> 0
	assert.Equal(t, []float64{4, 0, 0, 0}, v.W)
}

func TestAugmentFlip(t *testing.T) {
	v := NewFromData(2, 1, 1, []float64{1, 2})
	v.Augment(2, 0, 0, true)
	assert.Equal(t, []float64{2, 1}, v.W)
}

func TestAddFromAndAddScaledFrom(t *testing.T) {
	a := NewFromData(1, 1, 3, []float64{1, 2, 3})
	b := NewFromData(1, 1, 3, []float64{1, 1, 1})
	a.AddFrom(b)
	assert.Equal(t, []float64{2, 3, 4}, a.W)

	a.AddScaledFrom(b, -2)
	assert.Equal(t, []float64{0, 1, 2}, a.W)
}

func TestSampledColumnNeverPanicsAndStaysInRange(t *testing.T) {
	v := NewFromData(1, 1, 3, []float64{0.2, 0.3, 0.5})
	for i := 0; i < 50; i++ {
		col := v.SampledColumn()
		assert.GreaterOrEqual(t, col, 0)
		assert.Less(t, col, 3)
	}
}

func TestNewIsGaussianScaledByInverseSqrtLength(t *testing.T) {
	v := New(4, 4, 4) // length 64
	// sanity: values should not be degenerate/huge given the 1/sqrt(64) scale
	for _, w := range v.W {
		assert.Less(t, math.Abs(w), 5.0)
	}
}
