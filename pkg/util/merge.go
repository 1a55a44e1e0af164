package util

// DeepMerge merges overlay on top of base and returns a new map.
// Nested maps are merged key by key; any other overlay value replaces the
// base value. Neither input is modified.
func DeepMerge(base map[string]any, overlay map[string]any) map[string]any {
	result := DeepCopy(base)
	if result == nil {
		result = make(map[string]any, len(overlay))
	}

	for k, ov := range overlay {
		bm, baseIsMap := result[k].(map[string]any)
		om, overlayIsMap := ov.(map[string]any)

		if baseIsMap && overlayIsMap {
			result[k] = DeepMerge(bm, om)
			continue
		}

		result[k] = copyValue(ov)
	}

	return result
}

// DeepCopy returns a recursive copy of m. Nested maps and slices are copied,
// scalars are shared.
func DeepCopy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}

	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = copyValue(val[i])
		}

		return out
	default:
		return v
	}
}
