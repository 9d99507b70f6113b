package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/dowstats/ladder-api/internal/models"
)

func seedPlayer(store *memStore, sid, name string) *models.Player {
	_ = store.CreateIfMissing(context.Background(), &models.Player{SID: sid, Name: name, AvatarURL: "/a.jpg"})
	return store.players[sid]
}

func TestPlayerProfileService_Profile(t *testing.T) {
	store := newMemStore()
	p := seedPlayer(store, "76561198000000001", "Alice")
	prof, _ := store.GetOrCreateProfile(context.Background(), p.ID, 1, 3)
	prof.MMR = 1540
	prof.MaxMMR = 1560
	prof.Races = models.RaceStats{
		{Format: 1, Race: 1}: {Games: 3, Wins: 2},
		{Format: 2, Race: 3}: {Games: 4, Wins: 1},
		{Format: 4, Race: 3}: {Games: 1, Wins: 1},
	}
	store.profiles[profileKey{p.ID, 1, 3}] = prof

	svc := NewPlayerProfileService(store, store, store, NewResolver(store))
	resp, err := svc.Profile(context.Background(), p.ID, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item := resp.Item
	if item == nil {
		t.Fatal("expected a profile")
	}
	if item.MMR != 1540 || item.MaxMMR != 1560 || item.SeasonID != 3 {
		t.Errorf("item = %+v", item)
	}
	if item.Solo.TotalGames != 3 || item.Solo.Winrate == nil || *item.Solo.Winrate != 66.7 {
		t.Errorf("solo = %+v", item.Solo)
	}
	if item.Team.TotalGames != 5 || item.Team.TotalWins != 2 || *item.Team.Winrate != 40 {
		t.Errorf("team = %+v", item.Team)
	}

	oneVsOne := item.Formats["1v1"]
	if len(oneVsOne) != models.RaceCount || len(item.Formats) != 4 {
		t.Fatalf("every format should list every race, got %d formats", len(item.Formats))
	}
	if oneVsOne[0].Games != 3 || oneVsOne[0].Losses != 1 || *oneVsOne[0].RaceName != "Space Marines" {
		t.Errorf("1v1 SM = %+v", oneVsOne[0])
	}
	if oneVsOne[1].RaceName != nil {
		t.Error("unknown race should have a null name")
	}
}

func TestPlayerProfileService_NoStats(t *testing.T) {
	store := newMemStore()
	p := seedPlayer(store, "76561198000000001", "Alice")
	svc := NewPlayerProfileService(store, store, store, NewResolver(store))

	tests := []struct {
		name     string
		playerID int64
		season   *int
		wantMeta *int
	}{
		{"no stats row", p.ID, nil, intPtr(3)},
		{"unknown player", 999, nil, intPtr(3)},
		{"unknown season", p.ID, intPtr(9), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Profile(context.Background(), tt.playerID, 1, tt.season)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Item != nil {
				t.Errorf("expected null item, got %+v", resp.Item)
			}
			if (resp.Meta.SeasonID == nil) != (tt.wantMeta == nil) {
				t.Errorf("meta season = %v", resp.Meta.SeasonID)
			}
		})
	}
}

func TestPlayerProfileService_Validation(t *testing.T) {
	store := newMemStore()
	svc := NewPlayerProfileService(store, store, store, NewResolver(store))

	if _, err := svc.Profile(context.Background(), 0, 1, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("zero id: %v", err)
	}
	if _, err := svc.Profile(context.Background(), 1, 0, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("zero mod: %v", err)
	}
}

func TestWinrate(t *testing.T) {
	tests := []struct {
		rec  models.RaceRecord
		want *float64
	}{
		{models.RaceRecord{}, nil},
		{models.RaceRecord{Games: 3, Wins: 1}, floatPtr(33.3)},
		{models.RaceRecord{Games: 8, Wins: 8}, floatPtr(100)},
	}
	for _, tt := range tests {
		got := winrate(tt.rec)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("winrate(%+v) = %v", tt.rec, got)
		}
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
