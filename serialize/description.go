// Package serialize implements the two JSON wire formats: the network
// "description" that builds a fresh network and optimizer, and the
// "snapshot" that persists and restores a trained network's parameters.
package serialize

import (
	"encoding/json"
	"log/slog"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/network"
	"github.com/deepvolume/convnet/nnerrors"
	"github.com/deepvolume/convnet/optim"
)

// LayerSpec is one entry in a network description: an ordered list of
// layer specs with a type tag, read directly off a JSON array. Trainer
// tags (sgd, adagrad, adadelta, adam, nesterov, windowgrad) don't
// describe a layer at all — they configure the optimizer and are
// consumed separately from the layer list.
type LayerSpec struct {
	Type         string   `json:"type"`
	NeuronCount  int      `json:"neuron_count,omitempty"`
	ClassCount   int      `json:"class_count,omitempty"`
	Activation   string   `json:"activation,omitempty"`
	DropProb     float64  `json:"drop_prob,omitempty"`
	GroupSize    int      `json:"group_size,omitempty"`
	BiasPref     *float64 `json:"bias_pref,omitempty"`
	InputWidth   int      `json:"input_width,omitempty"`
	InputHeight  int      `json:"input_height,omitempty"`
	InputDepth   int      `json:"input_depth,omitempty"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	FilterCount  int      `json:"filter_count,omitempty"`
	Stride       int      `json:"stride,omitempty"`
	Pad          int      `json:"pad,omitempty"`
	L1DecayMul   *float64 `json:"l1_decay_mul,omitempty"`
	L2DecayMul   *float64 `json:"l2_decay_mul,omitempty"`
	K            float64  `json:"k,omitempty"`
	N            float64  `json:"n,omitempty"`
	Alpha        float64  `json:"alpha,omitempty"`
	Beta         float64  `json:"beta,omitempty"`
	Steps        int      `json:"steps,omitempty"`

	LearningRate float64 `json:"learning_rate,omitempty"`
	BatchSize    int     `json:"batch_size,omitempty"`
	Momentum     float64 `json:"momentum,omitempty"`
	Rho          float64 `json:"ro,omitempty"`
	Eps          float64 `json:"eps,omitempty"`
	Beta1        float64 `json:"beta1,omitempty"`
	Beta2        float64 `json:"beta2,omitempty"`
	L1Decay      float64 `json:"l1_decay,omitempty"`
	L2Decay      float64 `json:"l2_decay,omitempty"`
}

var trainerTags = map[string]bool{
	"sgd": true, "adagrad": true, "adadelta": true,
	"adam": true, "nesterov": true, "windowgrad": true,
}

// BuiltNetwork bundles the constructed network with the batch size its
// trainer tag specified (1 if none was specified).
type BuiltNetwork struct {
	Network   *network.Network
	Optimizer optim.Optimizer
	BatchSize int
}

// ParseDescription parses a network description JSON array, auto-
// expanding composite tags (softmax/svm/regression each prepend a
// fully-connected layer) and any per-spec activation/dropout
// append-layers, and constructs the single declared optimizer.
func ParseDescription(data []byte) (*BuiltNetwork, error) {
	var specs []LayerSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		slog.Error("failed to parse network description", "error", err)
		return nil, nnerrors.NewConfigError("description", "invalid JSON: "+err.Error())
	}
	if len(specs) < 2 {
		return nil, nnerrors.NewConfigError("description", "at least two layers required")
	}
	if specs[0].Type != "input" {
		return nil, nnerrors.NewConfigError("layers[0]", "first layer must be input")
	}

	net := network.New()
	var opt optim.Optimizer
	batchSize := 1
	trainerSeen := false

	for _, spec := range specs {
		if trainerTags[spec.Type] {
			if trainerSeen {
				return nil, nnerrors.NewConfigError("optimizer", "at most one optimizer tag allowed")
			}
			trainerSeen = true
			built, bs, err := buildOptimizer(spec)
			if err != nil {
				slog.Error("failed to construct optimizer from description", "optimizer_type", spec.Type, "error", err)
				return nil, err
			}
			opt = built
			batchSize = bs
			continue
		}

		layers, err := expandSpec(spec)
		if err != nil {
			slog.Error("failed to construct layer from description", "layer_type", spec.Type, "error", err)
			return nil, err
		}
		for _, l := range layers {
			if err := net.Add(l); err != nil {
				return nil, err
			}
		}
	}

	return &BuiltNetwork{Network: net, Optimizer: opt, BatchSize: batchSize}, nil
}

// expandSpec turns one LayerSpec into one or more concrete layers:
// softmax/svm/regression prepend a fully-connected layer of the
// specified neuron/class count, and an activation/drop_prob field
// appends the matching activation/dropout layer after the primary one.
func expandSpec(spec LayerSpec) ([]layer.Layer, error) {
	var out []layer.Layer

	switch spec.Type {
	case "input":
		out = append(out, layer.NewInput(spec.InputWidth, spec.InputHeight, spec.InputDepth))
		return out, nil

	case "fc":
		if spec.NeuronCount <= 0 {
			return nil, nnerrors.NewConfigError("neuron_count", "fc layer requires a positive neuron_count")
		}
		l1, l2 := decayMuls(spec, "relu" == spec.Activation)
		bias := biasPref(spec, spec.Activation == "relu")
		out = append(out, layer.NewFullyConnected(spec.NeuronCount, l1, l2, bias))

	case "conv":
		if spec.Width <= 0 || spec.Height <= 0 {
			return nil, nnerrors.NewConfigError("width/height", "conv layer requires a positive width and height")
		}
		if spec.FilterCount <= 0 {
			return nil, nnerrors.NewConfigError("filter_count", "conv layer requires a positive filter_count")
		}
		l1, l2 := decayMuls(spec, spec.Activation == "relu")
		bias := biasPref(spec, spec.Activation == "relu")
		conv := layer.NewConv(spec.Width, spec.Height, spec.FilterCount, l1, l2, bias)
		if spec.Stride > 0 {
			conv.WithStride(spec.Stride)
		} else {
			conv.WithStride(1)
		}
		conv.WithPad(spec.Pad)
		out = append(out, conv)

	case "pool":
		stride := spec.Stride
		if stride == 0 {
			stride = 2
		}
		pool := layer.NewPool(spec.Width, spec.Height, stride)
		pool.WithPad(spec.Pad)
		out = append(out, pool)

	case "relu":
		out = append(out, layer.NewRelu())
	case "sigmoid":
		out = append(out, layer.NewSigmoid())
	case "tanh":
		out = append(out, layer.NewTanh())
	case "maxout":
		groupSize := spec.GroupSize
		if groupSize == 0 {
			groupSize = 2
		}
		out = append(out, layer.NewMaxout(groupSize))
	case "dropout":
		out = append(out, layer.NewDropout(spec.DropProb))
	case "lrn":
		n := int(spec.N)
		if n == 0 {
			n = 5
		}
		out = append(out, layer.NewLRN(spec.K, n, spec.Alpha, spec.Beta))
	case "recurrent":
		if spec.NeuronCount <= 0 {
			return nil, nnerrors.NewConfigError("neuron_count", "recurrent layer requires a positive neuron_count")
		}
		if spec.Steps <= 0 {
			return nil, nnerrors.NewConfigError("steps", "recurrent layer requires a positive steps")
		}
		l1, l2 := decayMuls(spec, false)
		out = append(out, layer.NewRecurrent(spec.NeuronCount, spec.Steps, l1, l2))

	case "softmax":
		if spec.ClassCount <= 0 {
			return nil, nnerrors.NewConfigError("class_count", "softmax layer requires a positive class_count")
		}
		l1, l2 := decayMuls(spec, false)
		out = append(out, layer.NewFullyConnected(spec.ClassCount, l1, l2, 0))
		out = append(out, layer.NewSoftmax(spec.ClassCount))
		return out, nil

	case "svm":
		if spec.ClassCount <= 0 {
			return nil, nnerrors.NewConfigError("class_count", "svm layer requires a positive class_count")
		}
		l1, l2 := decayMuls(spec, false)
		out = append(out, layer.NewFullyConnected(spec.ClassCount, l1, l2, 0))
		out = append(out, layer.NewSVM(spec.ClassCount))
		return out, nil

	case "regression":
		if spec.NeuronCount <= 0 {
			return nil, nnerrors.NewConfigError("neuron_count", "regression layer requires a positive neuron_count")
		}
		l1, l2 := decayMuls(spec, false)
		out = append(out, layer.NewFullyConnected(spec.NeuronCount, l1, l2, 0))
		out = append(out, layer.NewRegression(spec.NeuronCount))
		return out, nil

	default:
		return nil, nnerrors.NewConfigError("type", "unknown layer type "+spec.Type)
	}

	switch spec.Activation {
	case "", "maxout": // maxout has its own tag, not an activation append
	case "relu":
		out = append(out, layer.NewRelu())
	case "sigmoid":
		out = append(out, layer.NewSigmoid())
	case "tanh":
		out = append(out, layer.NewTanh())
	default:
		return nil, nnerrors.NewConfigError("activation", "unknown activation "+spec.Activation)
	}
	if spec.DropProb > 0 {
		out = append(out, layer.NewDropout(spec.DropProb))
	}
	return out, nil
}

// biasPref resolves the bias_pref default: 0.1 when absent and the
// adjacent activation is relu (to avoid dead-ReLU units), 0 otherwise.
func biasPref(spec LayerSpec, isRelu bool) float64 {
	if spec.BiasPref != nil {
		return *spec.BiasPref
	}
	if isRelu {
		return 0.1
	}
	return 0
}

func decayMuls(spec LayerSpec, _ bool) (l1, l2 float64) {
	l1 = 0
	if spec.L1DecayMul != nil {
		l1 = *spec.L1DecayMul
	}
	l2 = 1
	if spec.L2DecayMul != nil {
		l2 = *spec.L2DecayMul
	}
	return l1, l2
}

func buildOptimizer(spec LayerSpec) (optim.Optimizer, int, error) {
	batchSize := spec.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	switch spec.Type {
	case "sgd":
		return optim.NewSGD(spec.LearningRate, spec.Momentum), batchSize, nil
	case "adagrad":
		return optim.NewAdagrad(spec.LearningRate), batchSize, nil
	case "adadelta":
		rho, eps := spec.Rho, spec.Eps
		if rho == 0 {
			rho = 0.95
		}
		if eps == 0 {
			eps = 1e-6
		}
		return optim.NewAdadelta(rho, eps), batchSize, nil
	case "adam":
		return optim.NewAdam(spec.LearningRate), batchSize, nil
	case "nesterov":
		return optim.NewNesterov(spec.LearningRate, spec.Momentum), batchSize, nil
	case "windowgrad":
		rho := spec.Rho
		if rho == 0 {
			rho = 0.95
		}
		return optim.NewWindowgrad(spec.LearningRate, rho), batchSize, nil
	default:
		return nil, 0, nnerrors.NewConfigError("type", "unknown optimizer type "+spec.Type)
	}
}
