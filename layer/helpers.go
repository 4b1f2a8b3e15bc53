package layer

import "github.com/deepvolume/convnet/volume"

// intField and floatField pull numeric fields out of the generic maps
// Store/Load exchange. JSON unmarshals all numbers as float64, so these
// centralize the conversion rather than repeating type assertions in
// every layer.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func intFieldDefault(m map[string]any, key string, def int) int {
	if _, ok := m[key]; !ok {
		return def
	}
	return intField(m, key)
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func floatFieldDefault(m map[string]any, key string, def float64) float64 {
	if _, ok := m[key]; !ok {
		return def
	}
	return floatField(m, key)
}

// floatSliceField pulls a []float64 out of a generic map, tolerating the
// []any shape json.Unmarshal produces.
func floatSliceField(m map[string]any, key string) []float64 {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			if f, ok := e.(float64); ok {
				out[i] = f
			}
		}
		return out
	default:
		return nil
	}
}

// storeVolume captures a parameter volume's shape-independent payload
// (values + gradients) under the wire key names the spec's snapshot
// format uses ("w"/"dw").
func storeVolume(v *volume.Volume) map[string]any {
	return map[string]any{
		"w":  append([]float64(nil), v.W...),
		"dw": append([]float64(nil), v.Dw...),
	}
}

// loadVolume reconstructs a parameter volume of the given shape from a
// map produced by storeVolume. Missing "dw" defaults to zeros per §6's
// backward-compatibility rule.
func loadVolume(m map[string]any, w, h, d int) *volume.Volume {
	values := floatSliceField(m, "w")
	var vol *volume.Volume
	if values != nil {
		vol = volume.NewFromData(w, h, d, values)
	} else {
		vol = volume.NewZeros(w, h, d)
	}
	if grads := floatSliceField(m, "dw"); grads != nil {
		copy(vol.Dw, grads)
	}
	return vol
}
