// Package layer implements the layer type hierarchy: every concrete
// layer (Input, FullyConnected, Conv, Pool, the elementwise
// activations, Maxout, Dropout, LRN, and the loss layers Softmax,
// Regression, SVM) satisfies the common Layer capability surface so the
// network package can drive them uniformly.
package layer

import (
	"github.com/deepvolume/convnet/volume"
)

// Shape is a layer's input or output volume shape.
type Shape struct {
	W, H, D int
}

// Length returns w*h*d.
func (s Shape) Length() int { return s.W * s.H * s.D }

// ParamDescriptor is the (parameter tensor, L1-decay-multiplier,
// L2-decay-multiplier) triple an optimizer consumes for one learnable
// parameter tensor.
type ParamDescriptor struct {
	Param *volume.Volume
	L1Mul float64
	L2Mul float64
}

// Layer is the capability surface every concrete layer type implements.
type Layer interface {
	// Init fixes the layer's output shape given the preceding layer's
	// output shape, and allocates any parameter tensors that depend on
	// it.
	Init(in Shape) Shape

	// Forward computes this layer's output from x. isTraining toggles
	// training-only behavior (dropout masking, augmentation bookkeeping
	// upstream).
	Forward(x *volume.Volume, isTraining bool) *volume.Volume

	// Backward reads this layer's output gradient (already populated by
	// the next layer, or by a loss layer's BackwardLoss) and accumulates
	// gradients into its input and any parameter tensors.
	Backward()

	// Params returns this layer's complete list of parameter
	// descriptors; layers with no parameters return nil.
	Params() []ParamDescriptor

	// Store serializes this layer's shape, hyperparameters and
	// parameter values/gradients to a generic map for JSON encoding.
	Store() map[string]any

	// Load restores this layer's state from a map produced by Store.
	Load(m map[string]any)

	// Reset clears any per-forward-pass cached state (but not learned
	// parameters).
	Reset()

	// Type names the layer's wire tag, e.g. "conv", "relu", "softmax".
	Type() string

	InShape() Shape
	OutShape() Shape
}

// TargetKind discriminates the three ways a loss layer's target can be
// supplied.
type TargetKind int

const (
	// ClassIndexTarget carries an integer class index for
	// classification losses (softmax, SVM).
	ClassIndexTarget TargetKind = iota
	// VectorTargetKind carries a target volume for regression losses.
	VectorTargetKind
	// ReconstructSelfTarget means the loss is measured against the
	// network's own input (autoencoder mode); Network.Backward resolves
	// it into a vector target before the loss layer sees it.
	ReconstructSelfTarget
)

// Target is the sum type a loss layer's BackwardLoss accepts:
// Target = ClassIndex(int) | Vector(volume) | ReconstructSelf.
type Target struct {
	Kind  TargetKind
	Class int
	Vec   *volume.Volume
}

// ClassTarget builds a classification Target from a class index.
func ClassTarget(class int) Target {
	return Target{Kind: ClassIndexTarget, Class: class}
}

// VecTarget builds a regression Target from a target volume.
func VecTarget(v *volume.Volume) Target {
	return Target{Kind: VectorTargetKind, Vec: v}
}

// SelfTarget builds an autoencoder Target: reconstruct the network's own
// input.
func SelfTarget() Target {
	return Target{Kind: ReconstructSelfTarget}
}

// LossLayer is the capability surface for a terminal layer that turns
// logits into a scalar loss given a target.
type LossLayer interface {
	Layer
	// BackwardLoss initializes this layer's output gradient from target,
	// accumulates backward through it, and returns the scalar loss.
	BackwardLoss(target Target) float64
}
