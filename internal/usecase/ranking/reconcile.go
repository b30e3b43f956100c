// Package ranking orders catalog items by an externally supplied id ranking.
package ranking

import (
	"sort"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Reconcile returns a copy of items ordered by the position of each
// ProductID in order. Items whose id is in order come first, by rank; the
// rest keep their input order. Duplicate ids in order rank at their first
// occurrence. items is not modified.
func Reconcile(items []domain.CatalogItem, order []int64) []domain.CatalogItem {
	return reconcile(items, order, func(it domain.CatalogItem) int64 { return it.ProductID })
}

// ReconcileRanked is Reconcile for scored items. Scores are carried, not
// consulted.
func ReconcileRanked(items []domain.RankedCatalogItem, order []int64) []domain.RankedCatalogItem {
	return reconcile(items, order, func(it domain.RankedCatalogItem) int64 { return it.ProductID })
}

func reconcile[T any](items []T, order []int64, id func(T) int64) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) < 2 || len(order) == 0 {
		return out
	}

	rank := make(map[int64]int, len(order))
	for i, pid := range order {
		if _, seen := rank[pid]; !seen {
			rank[pid] = i
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[id(out[i])]
		rj, jok := rank[id(out[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}
