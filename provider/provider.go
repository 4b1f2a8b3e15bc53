// Package provider defines the minimal contract a training session
// consumes to stream labeled samples, plus a simple in-memory provider
// for tests and small datasets.
package provider

import (
	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/volume"
)

// Sample is one training example: Input feeds the network, and Target
// carries its label using the same sum type a loss layer's
// BackwardLoss accepts — a class index, a target vector, or (via
// layer.SelfTarget) a request to reconstruct the input itself.
type Sample struct {
	Input  *volume.Volume
	Target layer.Target
}

// Provider streams labeled samples for a training session. Ordering is
// entirely the provider's choice — it may shuffle, replay, or stream
// from disk; the session never reorders what it's handed.
type Provider interface {
	// Len returns the total number of samples this provider yields.
	Len() int

	// Sample returns the i'th sample, 0 <= i < Len().
	Sample(i int) Sample

	// Shape is the (width, height, depth) of every sample's Input.
	Shape() (w, h, d int)

	// ClassCount is the number of distinct class labels this provider's
	// samples draw from; meaningless for providers whose samples all
	// carry vector or self-reconstruction targets.
	ClassCount() int
}

// InMemory is a Provider backed by a slice of samples already resident
// in memory — the straightforward case for small datasets, synthetic
// data, or test fixtures.
type InMemory struct {
	samples    []Sample
	w, h, d    int
	classCount int
}

// NewInMemory builds an InMemory provider over samples, which must all
// share the given (w,h,d) input shape. classCount is the number of
// distinct class labels samples draw from (ignored for pure-regression
// datasets).
func NewInMemory(samples []Sample, w, h, d, classCount int) *InMemory {
	return &InMemory{samples: samples, w: w, h: h, d: d, classCount: classCount}
}

func (p *InMemory) Len() int { return len(p.samples) }

func (p *InMemory) Sample(i int) Sample { return p.samples[i] }

func (p *InMemory) Shape() (w, h, d int) { return p.w, p.h, p.d }

func (p *InMemory) ClassCount() int { return p.classCount }
