package nlp

import (
	"math"
	"strings"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/transport/upstream"
)

// AvailableStockPlaceholder is the stock reported for a match that only
// says "available: true". Display logic branches on stock > 0.
const AvailableStockPlaceholder = 10

// All field-name precedence for the NLP payload lives in this file. For
// every pair the English key wins and the Spanish key is the fallback:
//
//	id            > id_producto
//	name          > nombre
//	price         > precio          (number or numeric string)
//	category      > categoria
//	image         > imagen
//	cantidad      > stock > available (true → 10, false → 0) > 0
//	match_score   > score
//	match_reasons > reasons
//	recommendations > products      (absent → no matches)
//	interpretation  > interpretacion
//	correction      > correccion
//
// Blank strings count as absent, so an empty English key never hides a
// populated Spanish one.

func mapResponse(resp *analyzeResponse, query string) (domain.SearchResult, error) {
	out := domain.SearchResult{
		Query:          firstString(resp.Query, resp.Original, &query),
		Interpretation: mapInterpretation(firstPtr(resp.Interpretation, resp.InterpretationAlt)),
		Correction:     mapCorrection(firstPtr(resp.Correction, resp.CorrectionAlt)),
		Matches:        []domain.SearchMatch{},
	}

	if raw := firstPtr(resp.Recommendations, resp.Products); raw != nil {
		for i, m := range *raw {
			match, ok := mapMatch(m)
			if !ok {
				return domain.SearchResult{}, upstream.Malformed("match %d has no id or id_producto", i)
			}
			out.Matches = append(out.Matches, match)
		}
	}

	if resp.ProcessingTimeMs != nil {
		out.ProcessingTimeMs = int64(math.Round(float64(*resp.ProcessingTimeMs)))
	}
	return out, nil
}

// mapMatch converts one foreign product shape. ok is false when no id is present.
func mapMatch(m wireMatch) (domain.SearchMatch, bool) {
	id := firstPtr(m.ID, m.IDProducto)
	if id == nil {
		return domain.SearchMatch{}, false
	}

	item := domain.CatalogItem{
		ProductID:    int64(*id),
		Name:         firstString(m.Name, m.Nombre),
		Price:        firstNumber(m.Price, m.Precio),
		Stock:        mapStock(m),
		CategoryName: firstString(m.Category, m.Categoria),
	}
	if img := firstString(m.Image, m.Imagen); img != "" {
		item.ImageRef = &img
	}

	reasons := m.MatchReasons
	if reasons == nil {
		reasons = m.Reasons
	}

	return domain.SearchMatch{
		RankedCatalogItem: domain.RankedCatalogItem{
			CatalogItem: item,
			Score:       firstNumber(m.MatchScore, m.Score),
		},
		Reasons: reasons,
	}, true
}

// mapStock applies: cantidad, then stock, then the available flag, else 0.
func mapStock(m wireMatch) int {
	if n := firstPtr(m.Cantidad, m.Stock); n != nil {
		if *n < 0 {
			return 0
		}
		return int(*n)
	}
	if m.Available != nil && *m.Available {
		return AvailableStockPlaceholder
	}
	return 0
}

func mapInterpretation(w *wireInterpretation) domain.Interpretation {
	out := domain.Interpretation{Attributes: []string{}}
	if w == nil {
		return out
	}
	out.Subject = firstNonEmpty(w.Subject, w.Producto)
	out.Category = firstNonEmpty(w.Category, w.Categoria)

	attrs := w.Attributes
	if attrs == nil {
		attrs = w.Atributos
	}
	seen := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out.Attributes = append(out.Attributes, a)
	}

	if pf := firstPtr(w.PriceFilter, w.FiltroPrecio); pf != nil {
		filter := domain.PriceFilter{
			Min:      numberPtr(firstPtr(pf.Min, pf.Minimo)),
			Max:      numberPtr(firstPtr(pf.Max, pf.Maximo)),
			Tendency: firstNonEmpty(pf.Tendency, pf.Tendencia),
		}
		if filter.Min != nil || filter.Max != nil || filter.Tendency != nil {
			out.PriceFilter = &filter
		}
	}
	return out
}

func mapCorrection(w *wireCorrection) domain.Correction {
	out := domain.Correction{Changes: []domain.CorrectionChange{}}
	if w == nil {
		return out
	}
	if applied := firstPtr(w.Applied, w.Aplicada); applied != nil {
		out.Applied = *applied
	}
	out.CorrectedQuery = firstNonEmpty(w.CorrectedQuery, w.QueryCorregida)

	changes := w.Changes
	if changes == nil {
		changes = w.Cambios
	}
	for _, c := range changes {
		out.Changes = append(out.Changes, domain.CorrectionChange{
			From:       firstString(c.From, c.Original),
			To:         firstString(c.To, c.Corregido),
			Confidence: firstNumber(c.Confidence, c.Confianza),
		})
	}
	return out
}

// firstPtr returns the first non-nil pointer.
func firstPtr[T any](ptrs ...*T) *T {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

// firstString returns the first non-empty string.
func firstString(ptrs ...*string) string {
	for _, p := range ptrs {
		if p != nil && *p != "" {
			return *p
		}
	}
	return ""
}

func firstNumber(ptrs ...*flexNumber) float64 {
	if p := firstPtr(ptrs...); p != nil {
		return float64(*p)
	}
	return 0
}

func numberPtr(n *flexNumber) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}

// firstNonEmpty returns a copy of the first string that is not blank, so an
// empty English key falls back to its Spanish counterpart.
func firstNonEmpty(ptrs ...*string) *string {
	for _, p := range ptrs {
		if p != nil && strings.TrimSpace(*p) != "" {
			v := *p
			return &v
		}
	}
	return nil
}
