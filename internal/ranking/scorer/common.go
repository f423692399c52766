package scorer

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
)

func floatPtr(v float64) *float64 { return &v }

// freshness decays from 1 toward 0 with the candidate's age.
func freshness(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() || !updatedAt.Before(now) {
		return 1
	}
	age := now.Sub(updatedAt)
	return math.Exp(-float64(age) / float64(freshnessHalfLife))
}

func sortByCoarse(items []domain.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Coarse() != items[j].Coarse() {
			return items[i].Coarse() > items[j].Coarse()
		}
		return items[i].ID < items[j].ID
	})
}

func sortByFine(items []domain.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Fine() != items[j].Fine() {
			return items[i].Fine() > items[j].Fine()
		}
		return items[i].ID < items[j].ID
	})
}

func top(items []domain.CandidateItem, n int) []domain.CandidateItem {
	if n > len(items) {
		n = len(items)
	}
	out := make([]domain.CandidateItem, n)
	copy(out, items[:n])
	return out
}

// assemble runs the shared tail of every scorer pipeline: sort the coarse
// survivors, cut the coarse list, apply fine scoring, cut topK.
func assemble(full []domain.CandidateItem, fine func(domain.CandidateItem) float64) *domain.ScoreResult {
	if len(full) == 0 {
		return &domain.ScoreResult{}
	}

	sortByCoarse(full)
	coarseList := top(full, CoarseListSize)

	for i := range coarseList {
		coarseList[i].FineScore = floatPtr(fine(coarseList[i]))
	}
	fineSorted := make([]domain.CandidateItem, len(coarseList))
	copy(fineSorted, coarseList)
	sortByFine(fineSorted)

	return &domain.ScoreResult{
		TopK:       top(fineSorted, TopKSize),
		CoarseList: coarseList,
		FullPool:   full,
	}
}

// diversify keeps rank 1 deterministic (highest fine score) and fills ranks
// 2..K by uniform sampling without replacement from the remaining pool, so
// repeated calls for the same subject surface varied alternates.
func diversify(fineSorted []domain.CandidateItem, k int, rng *rand.Rand) []domain.CandidateItem {
	if len(fineSorted) == 0 {
		return fineSorted
	}
	if k > len(fineSorted) {
		k = len(fineSorted)
	}

	out := make([]domain.CandidateItem, 0, k)
	out = append(out, fineSorted[0])

	rest := make([]domain.CandidateItem, len(fineSorted)-1)
	copy(rest, fineSorted[1:])
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	out = append(out, rest[:k-1]...)
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
