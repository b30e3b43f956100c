package domain

// RecommendationEntry is one upstream-ranked product id. Position in the
// containing slice is the rank.
type RecommendationEntry struct {
	ProductID int64   `json:"product_id"`
	Score     float64 `json:"score"`
}

// ProductIDs returns the distinct ids in first-seen order.
func ProductIDs(entries []RecommendationEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ProductID]; ok {
			continue
		}
		seen[e.ProductID] = struct{}{}
		ids = append(ids, e.ProductID)
	}
	return ids
}
