package logic

import "github.com/dowstats/ladder-api/internal/models"

const (
	// MinMMR and MaxMMR bound the rank spread of sparse seasons
	MinMMR = 1400
	MaxMMR = 1600

	RankBuckets = 7
)

// RankInterval is the inclusive rating range of one rank bucket
type RankInterval struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// RankIntervals is indexed by bucket number 1..7; index 0 is unused.
// Bucket 1 holds the highest ratings, bucket 7 the lowest.
type RankIntervals [RankBuckets + 1]RankInterval

// ComputeRankIntervals splits [minRating, maxRating] into seven equal-width buckets.
func ComputeRankIntervals(minRating, maxRating int) RankIntervals {
	lo := max(0, minRating)
	hi := max(lo+1, maxRating)
	interval := (hi-lo)/RankBuckets + 1

	var out RankIntervals
	for n := 1; n <= RankBuckets; n++ {
		out[RankBuckets+1-n] = RankInterval{
			Min: lo + interval*(n-1),
			Max: lo + interval*n - 1,
		}
	}
	return out
}

// RankFor returns the bucket whose range contains rating, scanning from the
// lowest bucket up. Ratings outside every range land in bucket 7.
func (iv RankIntervals) RankFor(rating int) int {
	for b := RankBuckets; b >= 1; b-- {
		if rating >= iv[b].Min && rating <= iv[b].Max {
			return b
		}
	}
	return RankBuckets
}

// RankForRating is RankFor on freshly computed intervals.
func RankForRating(rating, minRating, maxRating int) int {
	return ComputeRankIntervals(minRating, maxRating).RankFor(rating)
}

// ClampRankBounds widens an observed solo rating range so that it always
// spans at least [MinMMR, MaxMMR]. A nil bound means no profiles exist yet.
func ClampRankBounds(rawMin, rawMax *int) (int, int) {
	lo, hi := MinMMR, MaxMMR
	if rawMin != nil && *rawMin < MinMMR {
		lo = *rawMin
	}
	if rawMax != nil && *rawMax > MaxMMR {
		hi = *rawMax
	}
	return lo, hi
}

// snapshotBounds returns the stored bounds or the defaults when none are stored yet.
func snapshotBounds(snap *models.RankSnapshot) (int, int) {
	if snap == nil {
		return MinMMR, MaxMMR
	}
	return snap.Min, snap.Max
}
