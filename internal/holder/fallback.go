package holder

import (
	"context"
	"errors"
	"strings"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/observability"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

// Allow-list documents live at whitelist/<address> with a boolean
// "holder" field.
const whitelistCollection = "whitelist"

// fallback resolves an address when on-chain resolution is inapplicable or
// exhausted: forced-holder flag first, then the allow-list, then non-holder.
func (r *Resolver) fallback(ctx context.Context, address string, cfg domain.HolderConfig, attempts int) Outcome {
	if cfg.ForceAllAsHolder {
		observability.RecordFallbackHit("force")
		return Outcome{
			Holder:   true,
			Source:   domain.ResolutionSourceForce,
			Attempts: attempts,
		}
	}

	if r.documents != nil && r.whitelisted(ctx, address) {
		observability.RecordFallbackHit("whitelist")
		return Outcome{
			Holder:   true,
			Source:   domain.ResolutionSourceWhitelist,
			Attempts: attempts,
		}
	}

	observability.RecordFallbackHit("default")
	return Outcome{
		Source:   domain.ResolutionSourceDefault,
		Attempts: attempts,
	}
}

// whitelisted looks the address up in the allow-list, first exactly as given,
// then lower-cased when that form differs. A match requires an existing
// document with holder == true. Store faults resolve negative, never as
// errors.
func (r *Resolver) whitelisted(ctx context.Context, address string) bool {
	keys := []string{address}
	if lower := strings.ToLower(address); lower != address {
		keys = append(keys, lower)
	}

	for _, key := range keys {
		data, err := r.documents.GetDocument(ctx, whitelistCollection, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			observability.RecordStoreFault("whitelist")
			r.logger.Printf("allow-list lookup %s: %v", key, err)
			return false
		}

		if v, ok := data["holder"].(bool); ok && v {
			return true
		}
	}

	return false
}
