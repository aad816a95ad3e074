package holder

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/iskinnyufat-del/mc/internal/solana"
)

// FaultKind classifies endpoint and external-store faults. The classification
// feeds logs and metrics only: every kind advances to the next endpoint (or
// falls through the chain); none is fatal to a resolution.
type FaultKind int

const (
	// FaultTransient is any query fault without a more specific class.
	FaultTransient FaultKind = iota

	// FaultTimeout means the query exceeded its time bound.
	FaultTimeout

	// FaultAuthOrQuota means the endpoint rejected the request for
	// credential or rate-limit reasons.
	FaultAuthOrQuota

	// FaultStoreUnavailable means a config/allow-list/state store read failed.
	FaultStoreUnavailable
)

func (k FaultKind) String() string {
	switch k {
	case FaultTimeout:
		return "timeout"
	case FaultAuthOrQuota:
		return "auth_or_quota"
	case FaultStoreUnavailable:
		return "store_unavailable"
	default:
		return "transient"
	}
}

// Markers, matched case-insensitively against the fault text, that indicate
// an auth/quota rejection. Kept as explicit constants so the classifier is
// testable against the fixed list.
var authQuotaMarkers = []string{
	"api key",
	"forbidden",
	"403",
	strconv.Itoa(solana.RPCErrCodeMissingAPIKey),
}

// ClassifyFault maps a query error to a FaultKind. Deadline expiry wins over
// text matching; everything not matching an auth/quota marker is transient.
func ClassifyFault(err error) FaultKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FaultTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range authQuotaMarkers {
		if strings.Contains(msg, marker) {
			return FaultAuthOrQuota
		}
	}
	return FaultTransient
}
