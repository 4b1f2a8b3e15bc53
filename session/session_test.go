package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepvolume/convnet/checkpoint"
	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/network"
	"github.com/deepvolume/convnet/nnerrors"
	"github.com/deepvolume/convnet/optim"
	"github.com/deepvolume/convnet/provider"
	"github.com/deepvolume/convnet/serialize"
	"github.com/deepvolume/convnet/volume"
)

func TestNewRejectsNilNetworkAndNilOptimizer(t *testing.T) {
	n, opt := buildNetAndOpt(t)

	_, err := New(nil, opt, classificationProvider())
	require.Error(t, err)
	assert.IsType(t, &nnerrors.StateError{}, err)

	_, err = New(n, nil, classificationProvider())
	require.Error(t, err)
	assert.IsType(t, &nnerrors.StateError{}, err)
}

func TestLoadSnapshotRejectsNonEmptySession(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	s, err := New(n, opt, classificationProvider())
	require.NoError(t, err)
	defer s.Close()

	data, err := serialize.StoreSnapshot(n)
	require.NoError(t, err)

	s.Start()
	for i := 0; i < 200; i++ {
		if s.Snapshot().Step > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	err = s.LoadSnapshot(data)
	require.Error(t, err)
	assert.IsType(t, &nnerrors.StateError{}, err)
}

func TestCheckpointingSavesOnStepInterval(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	mgr, err := checkpoint.NewManager(4)
	require.NoError(t, err)

	s, err := New(n, opt, classificationProvider(),
		WithCheckpointing(mgr, 1),
		WithIterationLimit(1),
	)
	require.NoError(t, err)
	defer s.Close()

	s.Start()
	for i := 0; i < 200; i++ {
		if s.Snapshot().Iteration >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.Greater(t, mgr.Len(), 0)
	assert.NotNil(t, mgr.Latest())
}

func TestTrainingPanicStopsSessionInsteadOfCrashing(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	badSamples := []provider.Sample{
		// class index out of the softmax layer's range: BackwardLoss
		// indexes l.probs.W[target.Class] and panics.
		{Input: volume.NewFromData(1, 1, 2, []float64{1, 0}), Target: layer.ClassTarget(99)},
	}
	src := provider.NewInMemory(badSamples, 1, 1, 2, 2)

	s, err := New(n, opt, src, WithIterationLimit(0))
	require.NoError(t, err)
	defer s.Close()

	assert.NotPanics(t, func() {
		s.Start()
		time.Sleep(50 * time.Millisecond)
	})

	s.Stop() // must return promptly: the worker already recovered and exited
	assert.Equal(t, 0, s.Snapshot().Step, "the bad sample must never complete a step")
}

func TestLoadSnapshotRestoresFreshSession(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	s, err := New(n, opt, classificationProvider())
	require.NoError(t, err)
	defer s.Close()

	data, err := serialize.StoreSnapshot(n)
	require.NoError(t, err)
	require.NoError(t, s.LoadSnapshot(data))
}

func buildNetAndOpt(t *testing.T) (*network.Network, optim.Optimizer) {
	t.Helper()
	n := network.New()
	require.NoError(t, n.Add(layer.NewInput(1, 1, 2)))
	require.NoError(t, n.Add(layer.NewFullyConnected(2, 0, 1, 0)))
	require.NoError(t, n.Add(layer.NewSoftmax(2)))
	return n, optim.NewSGD(0.01, 0)
}

func classificationProvider() provider.Provider {
	samples := []provider.Sample{
		{Input: volume.NewFromData(1, 1, 2, []float64{1, 0}), Target: layer.ClassTarget(0)},
		{Input: volume.NewFromData(1, 1, 2, []float64{0, 1}), Target: layer.ClassTarget(1)},
	}
	return provider.NewInMemory(samples, 1, 1, 2, 2)
}

func TestStartStopIsIdempotentAndAdvancesIterations(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	s, err := New(n, opt, classificationProvider(), WithIterationLimit(0))
	require.NoError(t, err)
	defer s.Close()

	s.Start()
	s.Start() // idempotent: must not spawn a second worker
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	stats := s.Snapshot()
	assert.Greater(t, stats.Step, 0)
	assert.Greater(t, stats.Iteration, 0)
}

func TestIterationLimitStopsTrainingOnItsOwn(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	s, err := New(n, opt, classificationProvider(), WithIterationLimit(3))
	require.NoError(t, err)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		s.Start()
		for {
			if s.Snapshot().Iteration >= 3 {
				close(done)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("iteration limit was never reached")
	}
}

func TestIterationCallbackFires(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	var mu sync.Mutex
	var iterations []int

	s, err := New(n, opt, classificationProvider(),
		WithIterationLimit(2),
		WithIterationCallback(func(iteration int) {
			mu.Lock()
			iterations = append(iterations, iteration)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)
	defer s.Close()

	s.Start()
	for i := 0; i < 200; i++ {
		mu.Lock()
		n := len(iterations)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, len(iterations), 2)
}

func TestPredictRunsForwardOnlyAndReturnsClassIndex(t *testing.T) {
	n, opt := buildNetAndOpt(t)
	s, err := New(n, opt, classificationProvider())
	require.NoError(t, err)
	defer s.Close()

	x := volume.NewFromData(1, 1, 2, []float64{5, -5})
	pred := s.Predict(x)
	assert.True(t, pred == 0 || pred == 1)
}

func TestAugmentationProducesCroppedClone(t *testing.T) {
	n := network.New()
	require.NoError(t, n.Add(layer.NewInput(1, 1, 4)))
	require.NoError(t, n.Add(layer.NewFullyConnected(4, 0, 1, 0)))
	require.NoError(t, n.Add(layer.NewRegression(4)))
	opt := optim.NewSGD(0.01, 0)

	samples := []provider.Sample{
		{Input: volume.New(4, 4, 1), Target: layer.SelfTarget()},
	}
	src := provider.NewInMemory(samples, 4, 4, 1, 0)

	s, err := New(n, opt, src, WithSeed(7), WithAugmentation(2, false), WithIterationLimit(1))
	require.NoError(t, err)
	defer s.Close()

	original := samples[0].Input
	originalCopy := original.Clone()

	s.Start()
	for i := 0; i < 200; i++ {
		if s.Snapshot().Iteration >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, 4, original.Width, "augmentation must clone the sample, not mutate it in place")
	assert.Equal(t, originalCopy.W, original.W)
}
