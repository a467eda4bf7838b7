package domain

// ClassificationRule assigns Class to every cell whose value falls inside
// the half-open interval [Low, High). A nil bound is unbounded on that side:
// (nil, H) matches v < H and (L, nil) matches v >= L.
type ClassificationRule struct {
	Low   *float64 `yaml:"low"`
	High  *float64 `yaml:"high"`
	Class int      `yaml:"class"`
}

func (r ClassificationRule) matches(v float64) bool {
	switch {
	case r.Low == nil && r.High == nil:
		return true
	case r.Low == nil:
		return v < *r.High
	case r.High == nil:
		return v >= *r.Low
	default:
		return v >= *r.Low && v < *r.High
	}
}

// ClassificationSpec is an ordered rule list for one factor. Order is
// semantically significant: when intervals overlap, the last matching rule
// wins. A nil or empty spec means pass the raster through unchanged.
type ClassificationSpec []ClassificationRule

// Passthrough reports whether the rule list performs no classification.
func (s ClassificationSpec) Passthrough() bool {
	return len(s) == 0
}

// Validate rejects bounded rules whose bounds are inverted or empty. Runs at
// configuration time, never per cell.
func (s ClassificationSpec) Validate() error {
	for i, r := range s {
		if r.Low != nil && r.High != nil && *r.Low >= *r.High {
			return configErrorf("rule %d: lower bound %v must be below upper bound %v", i, *r.Low, *r.High)
		}
	}
	return nil
}

// Classify maps a continuous raster to integer class codes, same shape and
// georeferencing as the input, NoData sentinel ClassNoData.
//
// Rules apply in declared order, overwriting earlier assignments on any cell
// two rules both cover. Input NoData cells are forced back to the sentinel
// after all rules run, even if some interval nominally covered them. Valid
// cells matching no rule stay at the sentinel: unclassified real data
// becomes NoData. Callers relying on full coverage must write gap-free rules.
func Classify(r *Raster, spec ClassificationSpec) (*Raster, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Passthrough() {
		return r.Clone(), nil
	}

	out := NewRaster(r.Width, r.Height, ClassNoData)
	out.GeoTransform = r.GeoTransform
	out.SRS = r.SRS

	for _, rule := range spec {
		code := float64(rule.Class)
		for i, v := range r.Data {
			if v != r.NoData && rule.matches(v) {
				out.Data[i] = code
			}
		}
	}

	// NoData always wins over classification.
	for i, v := range r.Data {
		if v == r.NoData {
			out.Data[i] = ClassNoData
		}
	}

	return out, nil
}
