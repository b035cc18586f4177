package model

// FeatureCount is the number of inputs of a forecast model.
const FeatureCount = 6

// FeatureOrder is the column order of every FeatureVector. Training, serving
// and persisted model artifacts all use this ordering.
var FeatureOrder = [FeatureCount]string{
	FieldAmbientTemperature,
	FieldModuleTemperature,
	FieldIrradiation,
	FieldHour,
	FieldDayOfWeek,
	FieldMonth,
}

// FeatureVector is the ordered model input described by FeatureOrder.
type FeatureVector [FeatureCount]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// FeatureNames returns FeatureOrder as a slice, suitable for persisting.
func FeatureNames() []string {
	out := make([]string, FeatureCount)
	copy(out, FeatureOrder[:])
	return out
}

// MatchesFeatureOrder reports whether names lists exactly the features of
// FeatureOrder in the same order.
func MatchesFeatureOrder(names []string) bool {
	if len(names) != FeatureCount {
		return false
	}
	for i, n := range names {
		if n != FeatureOrder[i] {
			return false
		}
	}
	return true
}
