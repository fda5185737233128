// Package scaling derives per-bucket linear scaling factors so a bucket's
// published assignments sum to its configured marks ceiling. Factors are never
// stored; every computation starts from the committed raw totals, so repeated
// runs over unchanged inputs yield identical results.
package scaling

import "math"

// Factor is a computed per-bucket scaling factor. When no published
// assignment contributes raw marks the factor is undefined and held at 1.0
// instead of dividing by zero.
type Factor struct {
	BucketMax float64 `json:"bucket_max"`
	RawTotal  float64 `json:"raw_total"`
	Value     float64 `json:"value"`
	Undefined bool    `json:"undefined"`
}

// ComputeFactor derives the scaling factor from the bucket ceiling and the
// sum of raw maximum marks of all counted assignments.
func ComputeFactor(bucketMax, rawTotal float64) Factor {
	if rawTotal == 0 {
		return Factor{BucketMax: bucketMax, RawTotal: 0, Value: 1.0, Undefined: true}
	}
	return Factor{BucketMax: bucketMax, RawTotal: rawTotal, Value: bucketMax / rawTotal}
}

// Scale applies the factor to a raw mark and rounds to two decimal places for
// display. The raw value remains the value of record.
func (f Factor) Scale(raw float64) float64 {
	return Round2(raw * f.Value)
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
