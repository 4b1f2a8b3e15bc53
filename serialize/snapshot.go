package serialize

import (
	"encoding/json"
	"log/slog"

	"github.com/deepvolume/convnet/layer"
	"github.com/deepvolume/convnet/network"
	"github.com/deepvolume/convnet/nnerrors"
)

// snapshotDoc is the top-level snapshot wire object: an ordered list of
// per-layer state maps, each layer's own Store() output verbatim
// (including its "type" tag). This is a deliberately distinct shape
// from the LayerSpec description format above — a snapshot carries
// learned parameter values/gradients a description never has, and a
// description carries construction knobs (bias_pref, learning_rate...)
// a snapshot has no use for once the layer already exists.
type snapshotDoc struct {
	Layers []map[string]any `json:"layers"`
}

// StoreSnapshot captures every layer's current state (shape,
// hyperparameters, and parameter values/gradients) as a JSON payload
// suitable for LoadSnapshot to restore later.
func StoreSnapshot(net *network.Network) ([]byte, error) {
	layers := net.Layers()
	doc := snapshotDoc{Layers: make([]map[string]any, len(layers))}
	for i, l := range layers {
		doc.Layers[i] = l.Store()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		slog.Error("failed to marshal network snapshot", "error", err)
		return nil, err
	}
	return data, nil
}

// LoadSnapshot reconstructs a network from a StoreSnapshot payload. Each
// layer's own Load restores its shape and parameters; the layer type
// itself is read from each entry's "type" tag and is never inferred.
func LoadSnapshot(data []byte) (*network.Network, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("failed to parse network snapshot", "error", err)
		return nil, nnerrors.NewConfigError("snapshot", "invalid JSON: "+err.Error())
	}
	if len(doc.Layers) < 2 {
		return nil, nnerrors.NewConfigError("snapshot", "at least two layers required")
	}

	net := network.New()
	for i, m := range doc.Layers {
		typ, _ := m["type"].(string)
		l, err := newLayerByType(typ)
		if err != nil {
			slog.Error("failed to restore layer from snapshot", "layer_type", typ, "error", err)
			return nil, err
		}
		l.Load(m)
		if i == 0 {
			if _, ok := l.(*layer.Input); !ok {
				return nil, nnerrors.NewConfigError("layers[0]", "first layer must be input")
			}
		}
		if err := net.Restore(l); err != nil {
			return nil, err
		}
	}
	return net, nil
}

// newLayerByType returns a zero-value instance of the concrete layer
// type named by typ, ready for Load to populate. Init is not called
// here: Load restores the shape from what Store captured, and
// Network.Restore appends the layer without re-deriving its shape.
func newLayerByType(typ string) (layer.Layer, error) {
	switch typ {
	case "input":
		return layer.NewInput(0, 0, 0), nil
	case "fc":
		return layer.NewFullyConnected(0, 0, 1, 0), nil
	case "conv":
		return layer.NewConv(0, 0, 0, 0, 1, 0), nil
	case "pool":
		return layer.NewPool(0, 0, 1), nil
	case "relu":
		return layer.NewRelu(), nil
	case "sigmoid":
		return layer.NewSigmoid(), nil
	case "tanh":
		return layer.NewTanh(), nil
	case "maxout":
		return layer.NewMaxout(1), nil
	case "dropout":
		return layer.NewDropout(0), nil
	case "lrn":
		return layer.NewLRN(0, 1, 0, 0), nil
	case "recurrent":
		return layer.NewRecurrent(0, 1, 0, 1), nil
	case "softmax":
		return layer.NewSoftmax(0), nil
	case "svm":
		return layer.NewSVM(0), nil
	case "regression":
		return layer.NewRegression(0), nil
	default:
		return nil, nnerrors.NewConfigError("type", "unknown layer type "+typ)
	}
}
