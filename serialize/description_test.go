package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptionRegressionWithSGD(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":2},
		{"type":"fc","neuron_count":3},
		{"type":"regression","neuron_count":3},
		{"type":"sgd","learning_rate":0.01}
	]`)

	built, err := ParseDescription(desc)
	require.NoError(t, err)
	require.NotNil(t, built.Optimizer)

	// regression auto-prepends its own fully-connected layer, so the
	// network has 4 layers: input, fc(3), fc(3), regression.
	assert.Len(t, built.Network.Layers(), 4)
	assert.Equal(t, "regression", built.Network.Layers()[3].Type())
	assert.Equal(t, 1, built.BatchSize)
}

func TestParseDescriptionRejectsTooFewLayers(t *testing.T) {
	_, err := ParseDescription([]byte(`[{"type":"input","input_width":1,"input_height":1,"input_depth":1}]`))
	assert.Error(t, err)
}

func TestParseDescriptionRejectsNonInputFirstLayer(t *testing.T) {
	desc := []byte(`[{"type":"fc","neuron_count":3},{"type":"softmax","class_count":2}]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestParseDescriptionRejectsMultipleOptimizers(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":1},
		{"type":"fc","neuron_count":2},
		{"type":"softmax","class_count":2},
		{"type":"sgd","learning_rate":0.01},
		{"type":"adam","learning_rate":0.01}
	]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestParseDescriptionSoftmaxExpandsToTwoLayers(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":4},
		{"type":"softmax","class_count":3}
	]`)
	built, err := ParseDescription(desc)
	require.NoError(t, err)
	layers := built.Network.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, "fc", layers[1].Type())
	assert.Equal(t, "softmax", layers[2].Type())
}

func TestParseDescriptionReluAppendsAfterFC(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":4},
		{"type":"fc","neuron_count":5,"activation":"relu"},
		{"type":"svm","class_count":2}
	]`)
	built, err := ParseDescription(desc)
	require.NoError(t, err)
	layers := built.Network.Layers()
	// svm auto-prepends its own fully-connected layer.
	require.Len(t, layers, 5)
	assert.Equal(t, "fc", layers[1].Type())
	assert.Equal(t, "relu", layers[2].Type())
	assert.Equal(t, "fc", layers[3].Type())
	assert.Equal(t, "svm", layers[4].Type())
}

func TestParseDescriptionUnknownActivationErrors(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":4},
		{"type":"fc","neuron_count":5,"activation":"gelu"},
		{"type":"svm","class_count":2}
	]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestParseDescriptionRejectsMissingFCNeuronCount(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":4},
		{"type":"fc"},
		{"type":"softmax","class_count":2}
	]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestParseDescriptionRejectsMissingConvFilterCount(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":4,"input_height":4,"input_depth":1},
		{"type":"conv","width":2,"height":2},
		{"type":"softmax","class_count":2}
	]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestParseDescriptionRejectsMissingSoftmaxClassCount(t *testing.T) {
	desc := []byte(`[
		{"type":"input","input_width":1,"input_height":1,"input_depth":4},
		{"type":"softmax"}
	]`)
	_, err := ParseDescription(desc)
	assert.Error(t, err)
}

func TestBuildOptimizerDefaults(t *testing.T) {
	opt, batch, err := buildOptimizer(LayerSpec{Type: "adadelta"})
	require.NoError(t, err)
	assert.NotNil(t, opt)
	assert.Equal(t, 1, batch)
}

func TestBuildOptimizerUnknownType(t *testing.T) {
	_, _, err := buildOptimizer(LayerSpec{Type: "rmsprop"})
	assert.Error(t, err)
}
