package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the mutation counters for a single caller within the
// current quota window.
type QuotaNow struct {
	ReqCount uint32
	WindowID uint64
}

// Quota bounds how many mutating calls a caller may issue per window. A zero
// limit disables the check.
type Quota struct {
	MaxRequestsPerWindow uint32
	WindowSeconds        uint32
}

// CheckQuota verifies whether an additional request fits within the quota.
// Counters reset when the window rolls over. The returned QuotaNow reflects
// the updated counters when the quota is not exceeded; on denial the previous
// counters are returned unchanged.
func CheckQuota(q Quota, nowWindow uint64, prev QuotaNow, addReq uint32) (QuotaNow, error) {
	next := prev
	if prev.WindowID != nowWindow {
		next = QuotaNow{WindowID: nowWindow}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerWindow > 0 && next.ReqCount > q.MaxRequestsPerWindow {
		return prev, ErrQuotaRequestsExceeded
	}

	return next, nil
}
