package holder

import (
	"testing"

	"github.com/iskinnyufat-del/mc/internal/domain"
)

func TestAllowedChances(t *testing.T) {
	cfg := domain.HolderConfig{HolderChances: 5, NonHolderChances: 2}

	if got := AllowedChances(true, cfg); got != 5 {
		t.Errorf("AllowedChances(true) = %d, want 5", got)
	}
	if got := AllowedChances(false, cfg); got != 2 {
		t.Errorf("AllowedChances(false) = %d, want 2", got)
	}
}

func TestAllowedChances_Defaults(t *testing.T) {
	// Unset counts fall back to the documented defaults.
	var cfg domain.HolderConfig

	if got := AllowedChances(true, cfg); got != domain.DefaultHolderChances {
		t.Errorf("AllowedChances(true) = %d, want %d", got, domain.DefaultHolderChances)
	}
	if got := AllowedChances(false, cfg); got != domain.DefaultNonHolderChances {
		t.Errorf("AllowedChances(false) = %d, want %d", got, domain.DefaultNonHolderChances)
	}
}
