// Package optim implements the optimizer family that consumes a
// network's flat (parameter, gradient, L1/L2 multiplier) descriptor list
// and mutates parameters in place: SGD, Adagrad, Windowgrad, Adadelta,
// Adam, and Nesterov.
package optim

import (
	"math"

	"github.com/deepvolume/convnet/layer"
)

// Optimizer is the common contract every variant implements. Step is
// called once per training example; the optimizer internally counts and
// performs an actual parameter update only on every batchSize-th call.
type Optimizer interface {
	Step(params []layer.ParamDescriptor, batchSize int)
	// L1Loss and L2Loss report the decay loss accumulated on the most
	// recent update tick (reset to zero at the start of each tick).
	L1Loss() float64
	L2Loss() float64
	Reset()
}

// base holds the bookkeeping shared by every variant: the batch-size
// tick counter and the per-tick L1/L2 loss accumulators.
type base struct {
	count  int
	l1Loss float64
	l2Loss float64
}

// tick advances the batch counter and reports whether this call is the
// batchSize-th one (an update tick). On a tick it resets the counter and
// the running L1/L2 loss accumulators so they report only this step's
// contribution, per backward(target)'s reset contract.
func (b *base) tick(batchSize int) bool {
	b.count++
	if b.count < batchSize {
		return false
	}
	b.count = 0
	b.l1Loss = 0
	b.l2Loss = 0
	return true
}

func (b *base) L1Loss() float64 { return b.l1Loss }
func (b *base) L2Loss() float64 { return b.l2Loss }

func (b *base) Reset() {
	b.count = 0
	b.l1Loss = 0
	b.l2Loss = 0
}

// meanGradWithDecay computes the mean gradient over batchSize examples
// plus the L1/L2 weight-decay contribution for one parameter element,
// and accumulates this tick's l1_loss/l2_loss for it.
func (b *base) meanGradWithDecay(g, theta, l1, l2 float64, batchSize int) float64 {
	mean := g/float64(batchSize) + l2*theta + l1*sign(theta)
	b.l1Loss += l1 * math.Abs(theta)
	b.l2Loss += l2 * theta * theta / 2
	return mean
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
