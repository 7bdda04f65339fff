package certificate

import "time"

// defaultNow returns the current unix time in seconds, matching
// cq_get_timestamp. Tests override nowFn for determinism.
func defaultNow() uint64 {
	return uint64(time.Now().Unix())
}
