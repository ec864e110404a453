// Package match scores and ranks found items against a lost-item report
// using weighted multi-field text similarity. It is read-only: ranking never
// mutates any record.
package match

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Field weights. Optional fields missing on either side are dropped from
// both the numerator and the weight total rather than scored as zero.
const (
	titleWeight       = 0.3
	descriptionWeight = 0.3
	aiWeight          = 0.3
	locationWeight    = 0.1
)

// DefaultMinScore is the minimum weighted score for a candidate to be considered.
const DefaultMinScore = 0.3

// Candidate is one ranked found item.
type Candidate struct {
	Item  model.Item `json:"item"`
	Score float64    `json:"score"`
}

// Score computes the weighted match score between a lost and a found item,
// rounded to 4 decimal places. Returns exactly 0 when no field pair is
// comparable.
func Score(lost, found *model.Item) float64 {
	var sum, weight float64

	sum += Similarity(lost.Title, found.Title) * titleWeight
	weight += titleWeight

	if lost.Description != "" && found.Description != "" {
		sum += Similarity(lost.Description, found.Description) * descriptionWeight
		weight += descriptionWeight
	}
	if lost.AIDescription != "" && found.AIDescription != "" {
		sum += Similarity(lost.AIDescription, found.AIDescription) * aiWeight
		weight += aiWeight
	}
	if lost.Location != "" && found.Location != "" {
		sum += Similarity(lost.Location, found.Location) * locationWeight
		weight += locationWeight
	}

	if weight == 0 {
		return 0
	}
	return math.Round(sum/weight*10000) / 10000
}

// FindCandidates ranks matchable found items against the lost item,
// descending by score, filtered by minScore and truncated to limit. Failed
// pairs and same-owner items are already excluded by the store query; ties
// are broken by submission order (earliest item first) for determinism.
func FindCandidates(ctx context.Context, db *sql.DB, lost *model.Item, minScore float64, limit int) ([]Candidate, error) {
	if lost.Type != model.TypeLost {
		return nil, fmt.Errorf("item %d is not a lost item", lost.ID)
	}

	items, err := store.ListMatchableFoundItems(ctx, db, lost.ID, lost.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	var candidates []Candidate
	for _, item := range items {
		score := Score(lost, &item)
		if score >= minScore {
			candidates = append(candidates, Candidate{Item: item, Score: score})
		}
	}

	// The store returns items in submission order, and SliceStable keeps
	// that order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
