package entity

// FeatureVector is a flat named-value map describing one application's current
// risk posture. It is supplied per scoring call by the feature extraction
// collaborator; the engine never inspects application storage directly.
// Values are numbers or booleans.
type FeatureVector map[string]interface{}

// Number returns the named feature as a float64. The second return value is
// false when the feature is absent or not numeric.
func (fv FeatureVector) Number(name string) (float64, bool) {
	v, ok := fv[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// NumberOrZero returns the named feature as a float64, substituting 0 for a
// missing or non-numeric value. Used to build fixed-length model inputs.
func (fv FeatureVector) NumberOrZero(name string) float64 {
	n, ok := fv.Number(name)
	if !ok {
		return 0
	}
	return n
}

// Clone returns a shallow copy of the vector. History rows store a snapshot so
// later mutation of the caller's map cannot alter the audit trail.
func (fv FeatureVector) Clone() FeatureVector {
	if fv == nil {
		return nil
	}
	out := make(FeatureVector, len(fv))
	for k, v := range fv {
		out[k] = v
	}
	return out
}
