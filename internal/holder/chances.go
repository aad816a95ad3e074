package holder

import "github.com/iskinnyufat-del/mc/internal/domain"

// AllowedChances maps a holder decision to the number of draw chances.
// Non-positive configured counts are treated as unset and replaced with the
// documented defaults (3 for holders, 1 otherwise).
func AllowedChances(isHolder bool, cfg domain.HolderConfig) int {
	if isHolder {
		if cfg.HolderChances > 0 {
			return cfg.HolderChances
		}
		return domain.DefaultHolderChances
	}

	if cfg.NonHolderChances > 0 {
		return cfg.NonHolderChances
	}
	return domain.DefaultNonHolderChances
}
