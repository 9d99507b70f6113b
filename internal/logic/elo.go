package logic

import (
	"math"

	"github.com/dowstats/ladder-api/internal/models"
)

// EloTracks selects which rating tracks a confirmed match moves
type EloTracks struct {
	Solo    bool
	Overall bool
	Custom  bool
}

func (t EloTracks) Any() bool {
	return t.Solo || t.Overall || t.Custom
}

// TracksFor derives the rating tracks of a report. Nothing moves unless every
// slot carries an identity and the match is ranked. The dowde mod moves its
// automatch tracks only for automatch games and always moves the custom track.
func TracksFor(r *models.Report) EloTracks {
	change := r.AllSIDsPresent() && r.IsRanked
	auto := change && (!r.IsDowde() || r.IsAuto)
	return EloTracks{
		Solo:    auto && r.Type == 1 && r.IsFullStd,
		Overall: auto,
		Custom:  change && r.IsDowde(),
	}
}

// EloParticipant is one filled slot with its pre-match ratings
type EloParticipant struct {
	Slot    int
	Won     bool
	Solo    int
	Overall int
	Custom  int
}

// KFactor shrinks the per-pair step as the lobby grows.
func KFactor(filled int) int {
	return 60 - 5*filled
}

// ExpectedScore is the logistic win expectation of rating against opponent.
func ExpectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// EloDelta is the rounded single-pair change for the player holding rating.
func EloDelta(k, rating, opponent int, won bool) int {
	actual := 0.0
	if won {
		actual = 1
	}
	return roundHalfUp(float64(k) * (actual - ExpectedScore(rating, opponent)))
}

// ComputeRatingDeltas accumulates pairwise Elo deltas across every pair of
// participants with differing outcomes. Pairs on the same side contribute
// nothing. The result is keyed by slot and only carries enabled tracks.
func ComputeRatingDeltas(players []EloParticipant, tracks EloTracks) map[int]models.RatingDelta {
	out := make(map[int]models.RatingDelta, len(players))
	if !tracks.Any() || len(players) < 2 {
		return out
	}
	k := KFactor(len(players))

	for i, pi := range players {
		var solo, overall, custom int
		for j, pj := range players {
			if i == j || pi.Won == pj.Won {
				continue
			}
			if tracks.Solo {
				solo += EloDelta(k, pi.Solo, pj.Solo, pi.Won)
			}
			if tracks.Overall {
				overall += EloDelta(k, pi.Overall, pj.Overall, pi.Won)
			}
			if tracks.Custom {
				custom += EloDelta(k, pi.Custom, pj.Custom, pi.Won)
			}
		}

		var d models.RatingDelta
		if tracks.Solo {
			d.Solo = &solo
		}
		if tracks.Overall {
			d.Overall = &overall
		}
		if tracks.Custom {
			d.Custom = &custom
		}
		out[pi.Slot] = d
	}
	return out
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
