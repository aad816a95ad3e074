package domain

import "time"

// Defaults applied when the remote draw configuration document or individual
// fields are missing or of the wrong type.
const (
	DefaultHolderChances    = 3
	DefaultNonHolderChances = 1
)

// HolderConfig is the draw configuration, fully populated after load.
type HolderConfig struct {
	// ForceAllAsHolder short-circuits resolution: every address counts as a
	// holder when set.
	ForceAllAsHolder bool

	// HolderChances is the number of draw chances granted to holders.
	HolderChances int

	// NonHolderChances is the number of draw chances granted to everyone else.
	NonHolderChances int
}

// DefaultHolderConfig returns the static fallback configuration.
func DefaultHolderConfig() HolderConfig {
	return HolderConfig{
		ForceAllAsHolder: false,
		HolderChances:    DefaultHolderChances,
		NonHolderChances: DefaultNonHolderChances,
	}
}

// Resolution sources recorded for audit.
const (
	ResolutionSourceChain     = "chain"     // decisive on-chain answer
	ResolutionSourceForce     = "force"     // forceAllAsHolder flag
	ResolutionSourceWhitelist = "whitelist" // allow-list match
	ResolutionSourceDefault   = "default"   // fallback exhausted, non-holder
)

// Resolution is one completed holder resolution, recorded for audit.
type Resolution struct {
	Timestamp   time.Time
	Cluster     string
	Address     string
	Holder      bool
	Determined  bool // true when a decisive on-chain answer was obtained
	Source      string
	MatchedMint string
	Amount      float64
	Endpoint    string // endpoint that produced the decisive answer, if any
	Attempts    int    // endpoints tried during the on-chain phase
	Duration    time.Duration
}
