// Package session drives the trainer/observer concurrency model: a
// single background worker runs the forward/backward/update loop over
// a data provider while concurrent readers may snapshot the session's
// moving-average windows and network state.
package session

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/network"
	"github.com/deepvolume/convnet/nnerrors"
	"github.com/deepvolume/convnet/observe"
	"github.com/deepvolume/convnet/optim"
	"github.com/deepvolume/convnet/provider"
	"github.com/deepvolume/convnet/serialize"
	"github.com/deepvolume/convnet/volume"
	"github.com/deepvolume/convnet/window"
)

// Session owns a network, optimizer, and data provider, and drives the
// training loop in a background goroutine. A single mutex guards every
// mutation of the network's parameter/gradient state and the
// moving-average windows; observers take the same lock only for the
// duration of a read (see Snapshot).
type Session struct {
	mu  sync.Mutex
	net *network.Network
	opt optim.Optimizer
	src provider.Provider
	cfg Config
	rng *rand.Rand

	step      int
	iteration int

	active  bool
	stopped bool

	rewardWindow   *window.Window
	lossWindow     *window.Window
	l1Window       *window.Window
	l2Window       *window.Window
	trainAccWindow *window.Window

	cbWG sync.WaitGroup
	cbCh chan func()

	loadedOnce sync.Once
}

// New constructs a session over an already-wired network, optimizer,
// and data provider. New does not check that the network ends in a
// loss layer (network.Add only rejects layers added after one); without
// one, the first training step fails and stops the session. Training cannot run without an optimizer attached, so New rejects a
// nil one up front with a *nnerrors.StateError rather than deferring
// the failure to the first Start call.
func New(net *network.Network, opt optim.Optimizer, src provider.Provider, opts ...Option) (*Session, error) {
	if net == nil {
		return nil, nnerrors.NewStateError("session requires a non-nil network")
	}
	if opt == nil {
		return nil, nnerrors.NewStateError("training started without an optimizer")
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	s := &Session{
		net:            net,
		opt:            opt,
		src:            src,
		cfg:            cfg,
		rng:            newRand(cfg.seed),
		rewardWindow:   window.New(cfg.windowSize),
		lossWindow:     window.New(cfg.windowSize),
		l1Window:       window.New(cfg.windowSize),
		l2Window:       window.New(cfg.windowSize),
		trainAccWindow: window.New(cfg.windowSize),
		cbCh:           make(chan func(), 64),
		stopped:        true, // no worker yet, so Stop/Close return at once
	}
	go s.runCallbacks()
	return s, nil
}

// LoadSnapshot restores the session's network from a previously stored
// snapshot payload (see serialize.StoreSnapshot). It only succeeds
// against a session that hasn't taken any training steps yet; calling
// it after training has started returns a *nnerrors.StateError instead
// of silently discarding progress.
func (s *Session) LoadSnapshot(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active || s.step > 0 {
		return nnerrors.NewStateError("snapshot load attempted on a non-empty session")
	}

	net, err := serialize.LoadSnapshot(data)
	if err != nil {
		slog.Error("failed to load session snapshot", "error", err)
		return err
	}
	s.net = net
	slog.Info("session snapshot loaded")
	return nil
}

// Start spawns the training worker if it isn't already running.
// Idempotent: calling Start while already active returns immediately.
func (s *Session) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.stopped = false
	s.mu.Unlock()

	slog.Info("training session starting")

	s.loadedOnce.Do(func() {
		if s.cfg.onLoaded != nil {
			s.postCallback(s.cfg.onLoaded)
		}
	})

	go s.run()
}

// Stop requests the training worker to halt and blocks (polling) until
// it has actually stopped. The worker finishes the sample currently in
// flight before honoring the request.
func (s *Session) Stop() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	for {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			slog.Info("training session stopped")
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// Close stops any training activity, then tears down the callback
// worker. A Session must not be used after Close.
func (s *Session) Close() {
	s.Stop()
	close(s.cbCh)
	s.cbWG.Wait()
}

func (s *Session) run() {
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		active := s.active
		limitReached := s.cfg.iterLimit > 0 && s.iteration >= s.cfg.iterLimit
		s.mu.Unlock()
		if !active || limitReached {
			return
		}

		s.trainIteration()

		s.mu.Lock()
		s.iteration++
		iteration := s.iteration
		fireIterCB := s.cfg.iterCBInterval > 0 && iteration%s.cfg.iterCBInterval == 0
		s.mu.Unlock()

		if fireIterCB && s.cfg.onIteration != nil {
			s.postCallback(func() { s.cfg.onIteration(iteration) })
		}
	}
}

// trainIteration runs one full pass over the provider, stopping early
// if training is cancelled mid-pass or a sample's training step panics.
func (s *Session) trainIteration() {
	n := s.src.Len()
	for i := 0; i < n; i++ {
		s.mu.Lock()
		active := s.active
		s.mu.Unlock()
		if !active {
			return
		}

		sample := s.src.Sample(i)
		x := sample.Input
		if s.cfg.augment != nil {
			x = s.applyAugmentation(x)
		}

		res, ok := s.trainSample(sample, x)
		if !ok {
			return
		}

		if s.cfg.metrics != nil {
			s.cfg.metrics.Observe(res.loss, res.l1Loss, res.l2Loss)
			if res.predictThisStep {
				s.cfg.metrics.ObserveAccuracy(res.trainAcc)
			}
		}

		if s.cfg.checkpoint != nil && s.cfg.checkpointInterval > 0 && res.step%s.cfg.checkpointInterval == 0 {
			s.saveCheckpoint(res.loss)
		}

		if s.cfg.stepCBInterval > 0 && res.step%s.cfg.stepCBInterval == 0 {
			s.fireStepCallback(res.loss, res.l1Loss, res.l2Loss)
		}
	}
}

// stepResult carries one training step's outputs out of trainSample's
// locked section, so the metrics/checkpoint/callback hookups below can
// run without holding the session's lock.
type stepResult struct {
	loss, l1Loss, l2Loss, trainAcc float64
	predictThisStep                bool
	step                           int
}

// trainSample runs one (forward, backward, update) triple under the
// session's lock. A panic surfacing from Backward (a malformed sample
// producing a ShapeError, say) is recovered here rather than left to
// cross the worker goroutine: it is logged and the session is marked
// inactive, the same Stop semantics an explicit Stop call produces,
// instead of crashing the process. ok is false when the step did not
// complete, in which case the caller must stop iterating immediately.
func (s *Session) trainSample(sample provider.Sample, x *volume.Volume) (res stepResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("training step panicked, stopping session", "panic", r, "step", s.step)
			s.active = false
			ok = false
		}
	}()

	res.predictThisStep = s.cfg.predictInterval > 0 && s.step%s.cfg.predictInterval == 0
	if res.predictThisStep {
		s.net.Forward(x, false)
		res.trainAcc = s.evaluateAccuracy(sample, x)
	}

	res.loss, res.l1Loss, res.l2Loss = s.trainOne(x, sample.Target)
	s.step++
	res.step = s.step

	s.rewardWindow.Add(-res.loss)
	s.lossWindow.Add(res.loss)
	s.l1Window.Add(res.l1Loss)
	s.l2Window.Add(res.l2Loss)
	if res.predictThisStep {
		s.trainAccWindow.Add(res.trainAcc)
	}
	ok = true
	return
}

// trainOne runs one (forward, backward, update) triple. Called with the
// session's lock already held; a Backward error is a programming bug
// (malformed target/shape) and is raised via panic, recovered by the
// caller.
func (s *Session) trainOne(x *volume.Volume, target layer.Target) (loss, l1Loss, l2Loss float64) {
	s.net.Forward(x, true)
	loss, err := s.net.Backward(target)
	if err != nil {
		panic(err)
	}
	s.opt.Step(s.net.ParamsAndGrads(), s.cfg.batchSize)
	return loss, s.opt.L1Loss(), s.opt.L2Loss()
}

// saveCheckpoint marshals the session's current network state and
// retains it in the configured checkpoint manager. Marshal failures are
// logged, not propagated: a missed checkpoint should never stop
// training.
func (s *Session) saveCheckpoint(loss float64) {
	s.mu.Lock()
	data, err := serialize.StoreSnapshot(s.net)
	iteration := s.iteration
	s.mu.Unlock()
	if err != nil {
		slog.Error("failed to marshal checkpoint snapshot", "error", err)
		return
	}
	cp := s.cfg.checkpoint.Save(iteration, loss, data)
	slog.Info("checkpoint saved", "checkpoint_id", cp.ID, "iteration", cp.Iteration)
}

// evaluateAccuracy scores a forward-only pass already computed by the
// caller: for classification samples, 1 if the predicted class matches;
// for regression/autoencoder samples, the negative mean squared error
// between the network's output and the target (higher is better,
// consistent with reward's sign). An autoencoder sample's target is the
// network's own original input, same resolution Network.Backward uses.
func (s *Session) evaluateAccuracy(sample provider.Sample, x *volume.Volume) float64 {
	switch sample.Target.Kind {
	case layer.ClassIndexTarget:
		if s.net.Prediction() == sample.Target.Class {
			return 1
		}
		return 0
	case layer.ReconstructSelfTarget:
		return -meanSquaredError(x, s.net.Output())
	default:
		return -meanSquaredError(sample.Target.Vec, s.net.Output())
	}
}

func meanSquaredError(target, output *volume.Volume) float64 {
	sum := 0.0
	for i := range target.W {
		d := target.W[i] - output.W[i]
		sum += d * d
	}
	return sum / float64(len(target.W))
}

// applyAugmentation returns a freshly cropped(+flipped) clone of x,
// leaving x itself untouched for the caller to reuse. Offsets are drawn
// from the session's own seeded source, not the package-global one, so
// a session's augmentation sequence is reproducible given its seed.
func (s *Session) applyAugmentation(x *volume.Volume) *volume.Volume {
	clone := x.Clone()
	cfg := s.cfg.augment
	var dx, dy int
	if cfg.Crop < clone.Width {
		dx = s.rng.Intn(clone.Width - cfg.Crop + 1)
	} else {
		dx = 0
	}
	if cfg.Crop < clone.Height {
		dy = s.rng.Intn(clone.Height - cfg.Crop + 1)
	} else {
		dy = 0
	}
	clone.Augment(cfg.Crop, dx, dy, cfg.Flip)
	return clone
}

func (s *Session) fireStepCallback(loss, l1Loss, l2Loss float64) {
	s.mu.Lock()
	reward := s.rewardWindow.Mean()
	accuracy := s.trainAccWindow.Mean()
	step := s.step
	iteration := s.iteration
	s.mu.Unlock()

	if s.cfg.metrics != nil {
		s.cfg.metrics.ObserveReward(reward)
	}
	if s.cfg.onStep != nil {
		s.postCallback(func() { s.cfg.onStep(step, loss, l1Loss, l2Loss, reward, accuracy) })
	}
	if s.cfg.hub != nil {
		s.cfg.hub.Publish(observe.Snapshot{
			Step: step, Iteration: iteration,
			Loss: loss, L1Loss: l1Loss, L2Loss: l2Loss, Reward: reward,
		})
	}
}

// postCallback enqueues fn for the background callback worker rather
// than calling it inline — the trainer never calls back into the
// observer synchronously.
func (s *Session) postCallback(fn func()) {
	select {
	case s.cbCh <- fn:
	default:
	}
}

func (s *Session) runCallbacks() {
	s.cbWG.Add(1)
	defer s.cbWG.Done()
	for fn := range s.cbCh {
		fn()
	}
}

// Stats is a point-in-time snapshot of the session's moving-average
// windows, safe to read concurrently with an active training worker.
type Stats struct {
	Step          int
	Iteration     int
	Reward        float64
	Loss          float64
	L1Loss        float64
	L2Loss        float64
	TrainAccuracy float64
}

// Snapshot returns the session's current statistics under lock.
func (s *Session) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Step:          s.step,
		Iteration:     s.iteration,
		Reward:        s.rewardWindow.Mean(),
		Loss:          s.lossWindow.Mean(),
		L1Loss:        s.l1Window.Mean(),
		L2Loss:        s.l2Window.Mean(),
		TrainAccuracy: s.trainAccWindow.Mean(),
	}
}

// Network returns the session's underlying network. Callers reading
// its parameters concurrently with training should hold a Snapshot-
// style lock of their own making, or simply treat the returned pointer
// as read-mostly: forward/backward only run with the session's lock
// held.
func (s *Session) Network() *network.Network { return s.net }

// Predict runs a forward-only pass over x and returns the predicted
// class index. Safe to call from a different goroutine than the
// training worker; acquires the session's lock.
func (s *Session) Predict(x *volume.Volume) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.net.Forward(x, false)
	return s.net.Prediction()
}
