package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

func TestInMemoryBasics(t *testing.T) {
	samples := []Sample{
		{Input: volume.NewZeros(1, 1, 2), Target: layer.ClassTarget(0)},
		{Input: volume.NewZeros(1, 1, 2), Target: layer.ClassTarget(1)},
	}
	p := NewInMemory(samples, 1, 1, 2, 2)

	assert.Equal(t, 2, p.Len())
	w, h, d := p.Shape()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, d)
	assert.Equal(t, 2, p.ClassCount())
	assert.Equal(t, 1, p.Sample(1).Target.Class)
}

func TestInMemorySelfTargetSample(t *testing.T) {
	samples := []Sample{
		{Input: volume.NewZeros(2, 2, 1), Target: layer.SelfTarget()},
	}
	p := NewInMemory(samples, 2, 2, 1, 0)
	assert.Equal(t, layer.ReconstructSelfTarget, p.Sample(0).Target.Kind)
}
