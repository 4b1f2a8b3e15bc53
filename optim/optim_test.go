package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

func oneParam(w, dw float64) []layer.ParamDescriptor {
	v := volume.NewConst(1, 1, 1, w)
	v.Dw[0] = dw
	return []layer.ParamDescriptor{{Param: v, L1Mul: 0, L2Mul: 0}}
}

func TestSGDPlainUpdate(t *testing.T) {
	params := oneParam(1.0, 2.0)
	o := NewSGD(0.1, 0)
	o.Step(params, 1)
	assert.InDelta(t, 1.0-0.1*2.0, params[0].Param.W[0], 1e-12)
	assert.Equal(t, 0.0, params[0].Param.Dw[0])
}

func TestSGDDeferredUpdateUntilBatchSize(t *testing.T) {
	params := oneParam(1.0, 2.0)
	o := NewSGD(0.1, 0)
	o.Step(params, 2)
	assert.Equal(t, 1.0, params[0].Param.W[0], "no update until the batchSize-th call")
	o.Step(params, 2)
	assert.InDelta(t, 1.0-0.1*(2.0/2.0), params[0].Param.W[0], 1e-12)
}

func TestSGDMomentumAccumulatesVelocity(t *testing.T) {
	params := oneParam(1.0, 1.0)
	o := NewSGD(0.1, 0.9)
	o.Step(params, 1)
	w1 := params[0].Param.W[0]
	params[0].Param.Dw[0] = 1.0
	o.Step(params, 1)
	// second step's velocity carries momentum from the first, so the
	// parameter should move further than a second independent 0.1 step.
	assert.Less(t, params[0].Param.W[0], w1-0.1)
}

func TestAdagradShrinksStepOverTime(t *testing.T) {
	params := oneParam(1.0, 1.0)
	o := NewAdagrad(0.1)

	o.Step(params, 1)
	afterFirst := params[0].Param.W[0]
	firstStep := 1.0 - afterFirst

	params[0].Param.Dw[0] = 1.0
	o.Step(params, 1)
	secondStep := afterFirst - params[0].Param.W[0]

	assert.Greater(t, firstStep, secondStep, "accumulated squared gradient must shrink later steps")
}

func TestAdadeltaNumeric(t *testing.T) {
	v := volume.NewConst(1, 1, 1, 1.0)
	v.Dw[0] = 1.0
	params := []layer.ParamDescriptor{{Param: v, L1Mul: 0, L2Mul: 0}}

	o := NewAdadelta(0.95, 1e-6)
	o.Step(params, 1)

	// hand-derived: g=1, s = 0.05*1 = 0.05, dx = -sqrt((0+eps)/(s+eps))*g
	wantS := 0.05
	wantDx := -math.Sqrt((0+1e-6)/(wantS+1e-6)) * 1.0
	assert.InDelta(t, 1.0+wantDx, v.W[0], 1e-9)
}

func TestAdamBiasCorrection(t *testing.T) {
	v := volume.NewConst(1, 1, 1, 0.0)
	v.Dw[0] = 1.0
	params := []layer.ParamDescriptor{{Param: v, L1Mul: 0, L2Mul: 0}}

	o := NewAdam(0.1)
	o.Step(params, 1)
	// after one step with beta1=0.9/beta2=0.999, bias-corrected m,v both
	// equal raw g (1.0), so the step is -learningRate up to the eps term.
	assert.InDelta(t, -0.1, v.W[0], 1e-9)
}

func TestNesterovAndWindowgradRunWithoutPanicking(t *testing.T) {
	p1 := oneParam(1.0, 1.0)
	NewNesterov(0.1, 0.9).Step(p1, 1)
	assert.NotEqual(t, 1.0, p1[0].Param.W[0])

	p2 := oneParam(1.0, 1.0)
	NewWindowgrad(0.1, 0.95).Step(p2, 1)
	assert.NotEqual(t, 1.0, p2[0].Param.W[0])
}

func TestL1L2LossAccumulation(t *testing.T) {
	v := volume.NewConst(1, 1, 1, 2.0)
	v.Dw[0] = 0
	params := []layer.ParamDescriptor{{Param: v, L1Mul: 0.1, L2Mul: 0.2}}

	o := NewSGD(0.01, 0)
	o.Step(params, 1)
	assert.InDelta(t, 0.1*2.0, o.L1Loss(), 1e-12)
	assert.InDelta(t, 0.2*2.0*2.0/2, o.L2Loss(), 1e-12)
}

func TestResetClearsAccumulators(t *testing.T) {
	o := NewSGD(0.1, 0.9)
	params := oneParam(1.0, 1.0)
	o.Step(params, 1)
	o.Reset()
	assert.Equal(t, 0.0, o.L1Loss())
	assert.Equal(t, 0.0, o.L2Loss())
}
