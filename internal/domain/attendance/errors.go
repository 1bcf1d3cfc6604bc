package attendance

import "errors"

// ErrAggregationFailed wraps any store error hit while aggregating; no partial result is returned.
var ErrAggregationFailed = errors.New("attendance aggregation failed")
