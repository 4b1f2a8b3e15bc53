package session

import (
	"math/rand"

	"github.com/deepvolume/convnet/checkpoint"
	"github.com/deepvolume/convnet/observe"
)

// AugmentConfig configures per-sample random-crop(+flip) augmentation,
// applied to a clone of each sample's input before it is forwarded.
type AugmentConfig struct {
	Crop int
	Flip bool
}

// Config holds every session tunable set via Option. Defaults match the
// values spec'd for a training session with no special requirements.
type Config struct {
	seed            int64
	windowSize      int
	batchSize       int
	predictInterval int
	stepCBInterval  int
	iterCBInterval  int
	iterLimit       int
	augment         *AugmentConfig

	onStep      func(step int, loss, l1Loss, l2Loss, reward, accuracy float64)
	onIteration func(iteration int)
	onLoaded    func()

	hub     *observe.Hub
	metrics *observe.Metrics

	checkpoint         *checkpoint.Manager
	checkpointInterval int
}

func defaultConfig() Config {
	return Config{
		seed:            1,
		windowSize:      100,
		batchSize:       1,
		predictInterval: 1,
		stepCBInterval:  1,
		iterCBInterval:  1,
		iterLimit:       0,
	}
}

// Option configures a Session at construction time.
type Option func(*Config)

// WithSeed seeds the session's own random source, used for augmentation
// crop offsets — kept separate from the package-global math/rand source
// so a session's augmentation sequence is reproducible given its seed.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.seed = seed }
}

// WithWindowSize sets the capacity of every moving-average window
// (reward, loss, l1_loss, l2_loss, accuracy). Default 100.
func WithWindowSize(n int) Option {
	return func(c *Config) { c.windowSize = n }
}

// WithBatchSize sets the batch size passed to the optimizer's Step on
// every training sample. Default 1.
func WithBatchSize(n int) Option {
	return func(c *Config) { c.batchSize = n }
}

// WithPredictInterval sets how often (in steps) a forward-only
// evaluation records a training-accuracy/MSE sample. Default 1.
func WithPredictInterval(n int) Option {
	return func(c *Config) { c.predictInterval = n }
}

// WithStepCallbackInterval sets how often (in steps) the step callback
// fires. Default 1.
func WithStepCallbackInterval(n int) Option {
	return func(c *Config) { c.stepCBInterval = n }
}

// WithIterationCallbackInterval sets how often (in iterations) the
// iteration callback fires. Default 1.
func WithIterationCallbackInterval(n int) Option {
	return func(c *Config) { c.iterCBInterval = n }
}

// WithIterationLimit caps the number of full passes over the provider;
// zero (the default) means unlimited.
func WithIterationLimit(n int) Option {
	return func(c *Config) { c.iterLimit = n }
}

// WithAugmentation enables per-sample random-crop(+flip) augmentation.
func WithAugmentation(crop int, flip bool) Option {
	return func(c *Config) { c.augment = &AugmentConfig{Crop: crop, Flip: flip} }
}

// WithStepCallback registers the callback fired every stepCBInterval
// steps, posted to a background goroutine rather than called inline
// from the training loop.
func WithStepCallback(fn func(step int, loss, l1Loss, l2Loss, reward, accuracy float64)) Option {
	return func(c *Config) { c.onStep = fn }
}

// WithIterationCallback registers the callback fired every
// iterCBInterval iterations.
func WithIterationCallback(fn func(iteration int)) Option {
	return func(c *Config) { c.onIteration = fn }
}

// WithSessionLoadedCallback registers the callback fired once, the first
// time Start is called.
func WithSessionLoadedCallback(fn func()) Option {
	return func(c *Config) { c.onLoaded = fn }
}

// WithObserverHub attaches a websocket hub; every step-callback interval
// also publishes a Snapshot to it.
func WithObserverHub(h *observe.Hub) Option {
	return func(c *Config) { c.hub = h }
}

// WithMetrics attaches a Prometheus collector set; every training step
// updates it.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Config) { c.metrics = m }
}

// WithCheckpointing attaches a checkpoint manager; every everyNSteps
// training steps the session's current network state is marshaled via
// serialize.StoreSnapshot and retained in mgr.
func WithCheckpointing(mgr *checkpoint.Manager, everyNSteps int) Option {
	return func(c *Config) {
		c.checkpoint = mgr
		c.checkpointInterval = everyNSteps
	}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
