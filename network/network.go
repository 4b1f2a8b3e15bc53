// Package network drives an ordered stack of layers: it threads
// activations forward, threads gradients backward through the terminal
// loss layer, and exposes the combined parameter/gradient list the
// optimizer family consumes.
package network

import (
	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/nnerrors"
	"github.com/deepvolume/convnet/volume"
)

// Network is an ordered sequence of layers with a linked shape chain:
// layer i+1's input shape equals layer i's output shape. The first layer
// must be an Input layer; at most one loss layer may be added, and it
// must be last.
type Network struct {
	layers []layer.Layer
	loss   layer.LossLayer

	firstInput *volume.Volume
	lastOutput *volume.Volume
}

// New returns an empty network. Layers are attached with Add.
func New() *Network {
	return &Network{}
}

// Add appends a layer to the network, initializing it with the
// preceding layer's output shape. Returns a ConfigError if the first
// layer isn't an Input, or if a loss layer has already been added.
func (n *Network) Add(l layer.Layer) error {
	if len(n.layers) == 0 {
		if _, ok := l.(*layer.Input); !ok {
			return nnerrors.NewConfigError("layers[0]", "first layer must be input")
		}
	}
	if n.loss != nil {
		return nnerrors.NewConfigError("layers", "loss layer must be last")
	}

	var in layer.Shape
	if len(n.layers) > 0 {
		in = n.layers[len(n.layers)-1].OutShape()
	}
	l.Init(in)
	n.layers = append(n.layers, l)

	if ll, ok := l.(layer.LossLayer); ok {
		n.loss = ll
	}
	return nil
}

// Restore appends a layer whose shape and parameters have already been
// populated (typically via Load from a stored snapshot), skipping the
// Init call Add makes — calling Init here would discard the loaded
// parameter values by reallocating fresh ones. The same first-layer and
// at-most-one-loss-layer rules as Add still apply.
func (n *Network) Restore(l layer.Layer) error {
	if len(n.layers) == 0 {
		if _, ok := l.(*layer.Input); !ok {
			return nnerrors.NewConfigError("layers[0]", "first layer must be input")
		}
	}
	if n.loss != nil {
		return nnerrors.NewConfigError("layers", "loss layer must be last")
	}

	n.layers = append(n.layers, l)
	if ll, ok := l.(layer.LossLayer); ok {
		n.loss = ll
	}
	return nil
}

// Layers returns the network's layers in declared order.
func (n *Network) Layers() []layer.Layer { return n.layers }

// Forward threads x through every layer in order and returns the final
// layer's output.
func (n *Network) Forward(x *volume.Volume, isTraining bool) *volume.Volume {
	if len(n.layers) > 0 {
		if _, ok := n.layers[0].(*layer.Input); ok {
			n.firstInput = x
		}
	}
	out := x
	for _, l := range n.layers {
		out = l.Forward(out, isTraining)
	}
	n.lastOutput = out
	return out
}

// Backward initializes the loss layer's output gradient from target and
// scores it, then walks every preceding layer's Backward() in reverse.
// A ReconstructSelfTarget is resolved here into a vector target against
// the network's own original input.
func (n *Network) Backward(target layer.Target) (float64, error) {
	if n.loss == nil {
		return 0, nnerrors.NewStateError("network has no loss layer")
	}
	if target.Kind == layer.ReconstructSelfTarget {
		target = layer.VecTarget(n.firstInput)
	}

	loss := n.loss.BackwardLoss(target)
	for i := len(n.layers) - 2; i >= 0; i-- {
		n.layers[i].Backward()
	}
	return loss, nil
}

// Prediction returns the argmax of the last layer's output. Intended for
// classification networks; regression networks should read Output
// directly.
func (n *Network) Prediction() int {
	return n.lastOutput.MaxColumn()
}

// Output returns the most recent Forward call's output tensor.
func (n *Network) Output() *volume.Volume {
	return n.lastOutput
}

// ParamsAndGrads concatenates every layer's parameter descriptors in
// declared order — the optimizer family's update surface.
func (n *Network) ParamsAndGrads() []layer.ParamDescriptor {
	var out []layer.ParamDescriptor
	for _, l := range n.layers {
		out = append(out, l.Params()...)
	}
	return out
}

// Reset clears every layer's per-forward-pass cached state.
func (n *Network) Reset() {
	for _, l := range n.layers {
		l.Reset()
	}
	n.firstInput = nil
}
