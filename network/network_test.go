package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

func buildClassifier(t *testing.T) *Network {
	t.Helper()
	n := New()
	require.NoError(t, n.Add(layer.NewInput(1, 1, 2)))
	require.NoError(t, n.Add(layer.NewFullyConnected(2, 0, 1, 0)))
	require.NoError(t, n.Add(layer.NewSoftmax(2)))
	return n
}

func TestAddRejectsNonInputFirstLayer(t *testing.T) {
	n := New()
	err := n.Add(layer.NewFullyConnected(2, 0, 1, 0))
	assert.Error(t, err)
}

func TestAddRejectsLayerAfterLoss(t *testing.T) {
	n := buildClassifier(t)
	err := n.Add(layer.NewRelu())
	assert.Error(t, err)
}

func TestForwardBackwardProducesPrediction(t *testing.T) {
	n := buildClassifier(t)
	x := volume.NewFromData(1, 1, 2, []float64{0.5, -0.5})
	out := n.Forward(x, true)
	assert.Equal(t, 2, out.Length)

	loss, err := n.Backward(layer.ClassTarget(0))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss, 0.0)

	pred := n.Prediction()
	assert.True(t, pred == 0 || pred == 1)
	assert.Same(t, out, n.Output())
}

func TestBackwardWithoutLossLayerErrors(t *testing.T) {
	n := New()
	require.NoError(t, n.Add(layer.NewInput(1, 1, 2)))
	require.NoError(t, n.Add(layer.NewFullyConnected(2, 0, 1, 0)))

	x := volume.NewFromData(1, 1, 2, []float64{1, 1})
	n.Forward(x, true)
	_, err := n.Backward(layer.ClassTarget(0))
	assert.Error(t, err)
}

func TestRestoreSkipsInitAndPreservesParams(t *testing.T) {
	input := layer.NewInput(1, 1, 2)
	fc := layer.NewFullyConnected(2, 0, 1, 0)
	fc.Init(layer.Shape{W: 1, H: 1, D: 2})

	loaded := fc.Store()
	restoredFC := layer.NewFullyConnected(0, 0, 0, 0)
	restoredFC.Load(loaded)

	n := New()
	require.NoError(t, n.Restore(input))
	require.NoError(t, n.Restore(restoredFC))
	require.NoError(t, n.Restore(layer.NewSoftmax(2)))

	assert.Equal(t, layer.Shape{W: 1, H: 1, D: 2}, n.Layers()[1].OutShape())
	assert.Equal(t, fc.Params()[0].Param.W, n.Layers()[1].Params()[0].Param.W)
}

func TestRestoreEnforcesFirstLayerIsInput(t *testing.T) {
	n := New()
	err := n.Restore(layer.NewFullyConnected(2, 0, 1, 0))
	assert.Error(t, err)
}

func TestRestoreEnforcesLossLayerIsLast(t *testing.T) {
	n := New()
	require.NoError(t, n.Restore(layer.NewInput(1, 1, 2)))
	require.NoError(t, n.Restore(layer.NewSoftmax(2)))
	err := n.Restore(layer.NewRelu())
	assert.Error(t, err)
}

func TestResetClearsCachedInput(t *testing.T) {
	n := buildClassifier(t)
	x := volume.NewFromData(1, 1, 2, []float64{1, 1})
	n.Forward(x, true)
	n.Reset()
	assert.Nil(t, n.firstInput)
}
