package chi

import (
	"time"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest          = "bad_request"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamMalformed   = "upstream_malformed"
	codeCatalogUnavailable  = "catalog_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type itemDTO struct {
	ProductID    int64    `json:"product_id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Stock        int      `json:"stock"`
	InStock      bool     `json:"in_stock"`
	CategoryName string   `json:"category_name"`
	ImageRef     *string  `json:"image_ref,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

func (d itemDTO) toDomain() domain.CatalogItem {
	return domain.CatalogItem{
		ProductID:    d.ProductID,
		Name:         d.Name,
		Price:        d.Price,
		Stock:        d.Stock,
		CategoryName: d.CategoryName,
		ImageRef:     d.ImageRef,
	}
}

func catalogItemToDTO(it domain.CatalogItem) itemDTO {
	return itemDTO{
		ProductID:    it.ProductID,
		Name:         it.Name,
		Price:        it.Price,
		Stock:        it.Stock,
		InStock:      it.InStock(),
		CategoryName: it.CategoryName,
		ImageRef:     it.ImageRef,
	}
}

func catalogToDTO(items []domain.CatalogItem) []itemDTO {
	out := make([]itemDTO, len(items))
	for i, it := range items {
		out[i] = catalogItemToDTO(it)
	}
	return out
}

func rankedToDTO(items []domain.RankedCatalogItem) []itemDTO {
	out := make([]itemDTO, len(items))
	for i, it := range items {
		d := catalogItemToDTO(it.CatalogItem)
		score := it.Score
		d.Score = &score
		out[i] = d
	}
	return out
}

type feedResponse struct {
	Items        []itemDTO `json:"items"`
	Limit        int       `json:"limit"`
	Total        int       `json:"total"`
	Personalized bool      `json:"personalized"`
}

type itemsResponse struct {
	Items []itemDTO `json:"items"`
}

type catalogPageResponse struct {
	Items  []itemDTO `json:"items"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Query            string                `json:"query"`
	Interpretation   domain.Interpretation `json:"interpretation"`
	Correction       domain.Correction     `json:"correction"`
	Items            []itemDTO             `json:"items"`
	Total            int                   `json:"total"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

func searchToDTO(res domain.SearchResult) searchResponse {
	items := make([]itemDTO, len(res.Matches))
	for i, m := range res.Matches {
		d := catalogItemToDTO(m.CatalogItem)
		score := m.Score
		d.Score = &score
		d.Reasons = m.Reasons
		items[i] = d
	}
	return searchResponse{
		Query:            res.Query,
		Interpretation:   res.Interpretation,
		Correction:       res.Correction,
		Items:            items,
		Total:            len(items),
		ProcessingTimeMs: res.ProcessingTimeMs,
	}
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

type rerankRequest struct {
	Items []itemDTO `json:"items"`
	Order []int64   `json:"order"`
}

type serviceDTO struct {
	Healthy       bool       `json:"healthy"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

type healthResponse struct {
	Status   string                `json:"status"`
	Checks   map[string]string     `json:"checks"`
	Services map[string]serviceDTO `json:"services,omitempty"`
}
