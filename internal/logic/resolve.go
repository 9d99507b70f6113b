package logic

import (
	"context"
	"fmt"

	"github.com/dowstats/ladder-api/internal/models"
)

// ResolveOutcome tags how a Resolution was reached
type ResolveOutcome string

const (
	OutcomeFound    ResolveOutcome = "found"
	OutcomeFallback ResolveOutcome = "fallback"
	OutcomeNone     ResolveOutcome = "none"
)

// ResolveSource names the rule that produced the id
type ResolveSource string

const (
	SourceExplicit ResolveSource = "explicit"
	SourceActive   ResolveSource = "active"
	SourceLatest   ResolveSource = "latest"
	SourceDefault  ResolveSource = "default"
)

// Resolution is the result of resolving a mod or season reference.
// ID and Name are zero when Outcome is OutcomeNone.
type Resolution struct {
	ID      int
	Name    string
	Outcome ResolveOutcome
	Source  ResolveSource
}

func (r Resolution) Found() bool {
	return r.Outcome != OutcomeNone
}

// IDPtr returns nil for an unresolved reference, for JSON meta blocks.
func (r Resolution) IDPtr() *int {
	if !r.Found() {
		return nil
	}
	id := r.ID
	return &id
}

// Resolver centralizes the mod and season fallback rules
type Resolver struct {
	catalog CatalogStore
}

func NewResolver(catalog CatalogStore) *Resolver {
	return &Resolver{catalog: catalog}
}

// Mod resolves a technical name. Unknown names fall back to the default mod.
func (r *Resolver) Mod(ctx context.Context, technicalName string) (Resolution, error) {
	if technicalName != "" {
		mod, err := r.catalog.ModByTechnicalName(ctx, technicalName)
		if err != nil {
			return Resolution{}, fmt.Errorf("lookup mod %q: %w", technicalName, err)
		}
		if mod != nil {
			return Resolution{ID: mod.ID, Name: mod.Name, Outcome: OutcomeFound, Source: SourceExplicit}, nil
		}
	}
	return Resolution{ID: models.DefaultModID, Name: technicalName, Outcome: OutcomeFallback, Source: SourceDefault}, nil
}

// ModByID resolves a numeric mod id without any fallback.
func (r *Resolver) ModByID(ctx context.Context, id int) (Resolution, error) {
	mod, err := r.catalog.ModByID(ctx, id)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup mod %d: %w", id, err)
	}
	if mod == nil {
		return Resolution{Outcome: OutcomeNone, Source: SourceExplicit}, nil
	}
	return Resolution{ID: mod.ID, Name: mod.Name, Outcome: OutcomeFound, Source: SourceExplicit}, nil
}

// Season resolves an explicit season id, or the active season, or the most
// recent one. An explicit id that does not exist resolves to OutcomeNone.
func (r *Resolver) Season(ctx context.Context, explicit *int) (Resolution, error) {
	if explicit != nil {
		s, err := r.catalog.SeasonByID(ctx, *explicit)
		if err != nil {
			return Resolution{}, fmt.Errorf("lookup season %d: %w", *explicit, err)
		}
		if s == nil {
			return Resolution{Outcome: OutcomeNone, Source: SourceExplicit}, nil
		}
		return Resolution{ID: s.ID, Name: s.SeasonName, Outcome: OutcomeFound, Source: SourceExplicit}, nil
	}

	active, err := r.catalog.ActiveSeason(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup active season: %w", err)
	}
	if active != nil {
		return Resolution{ID: active.ID, Name: active.SeasonName, Outcome: OutcomeFound, Source: SourceActive}, nil
	}

	latest, err := r.catalog.LatestSeason(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup latest season: %w", err)
	}
	if latest != nil {
		return Resolution{ID: latest.ID, Name: latest.SeasonName, Outcome: OutcomeFallback, Source: SourceLatest}, nil
	}
	return Resolution{Outcome: OutcomeNone, Source: SourceLatest}, nil
}

// SeasonOrDefault is Season with the hardcoded off-season as the last resort.
// Writers use it so that every report lands in some season.
func (r *Resolver) SeasonOrDefault(ctx context.Context, explicit *int) (Resolution, error) {
	res, err := r.Season(ctx, explicit)
	if err != nil {
		return res, err
	}
	if res.Found() {
		return res, nil
	}
	if explicit != nil {
		return r.SeasonOrDefault(ctx, nil)
	}
	return Resolution{
		ID:      models.DefaultSeasonID,
		Name:    models.DefaultSeasonName,
		Outcome: OutcomeFallback,
		Source:  SourceDefault,
	}, nil
}
