// Package remoteconfig loads the draw configuration document with static
// defaults substituted per field.
package remoteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/observability"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

// The configuration lives in a single document at config/draw.
const (
	configCollection = "config"
	drawDocument     = "draw"
)

// Load reads the draw configuration. Missing documents, missing fields, and
// wrong-typed fields fall back to DefaultHolderConfig values per field.
// Store faults are logged and swallowed; Load never fails.
func Load(ctx context.Context, store storage.DocumentStore, logger *log.Logger) domain.HolderConfig {
	cfg := domain.DefaultHolderConfig()

	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		return cfg
	}

	data, err := store.GetDocument(ctx, configCollection, drawDocument)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.RecordStoreFault("config")
			logger.Printf("load draw config: %v (using defaults)", err)
		}
		return cfg
	}

	if v, ok := data["forceAllAsHolder"].(bool); ok {
		cfg.ForceAllAsHolder = v
	}
	if n, ok := coerceCount(data["holderChances"]); ok {
		cfg.HolderChances = n
	}
	if n, ok := coerceCount(data["nonHolderChances"]); ok {
		cfg.NonHolderChances = n
	}

	return cfg
}

// coerceCount accepts the numeric shapes document stores hand back:
// Firestore decodes numbers as int64 or float64, JSON decoders may produce
// float64 or json.Number.
func coerceCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
