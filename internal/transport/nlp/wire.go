package nlp

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

type analyzeRequest struct {
	Query   string         `json:"query"`
	Options analyzeOptions `json:"options"`
}

type analyzeOptions struct {
	MaxRecommendations    int  `json:"max_recommendations"`
	EnableCorrection      bool `json:"enable_correction"`
	EnableRecommendations bool `json:"enable_recommendations"`
	EnableSQLGeneration   bool `json:"enable_sql_generation"`
}

// analyzeResponse carries both key spellings the service is known to emit.
// Precedence between them is decided in mapping.go only.
type analyzeResponse struct {
	Success  *bool   `json:"success"`
	Error    *string `json:"error"`
	Query    *string `json:"query"`
	Original *string `json:"original_query"`

	Interpretation    *wireInterpretation `json:"interpretation"`
	InterpretationAlt *wireInterpretation `json:"interpretacion"`

	Correction    *wireCorrection `json:"correction"`
	CorrectionAlt *wireCorrection `json:"correccion"`

	Recommendations *[]wireMatch `json:"recommendations"`
	Products        *[]wireMatch `json:"products"`

	ProcessingTimeMs *flexNumber `json:"processing_time_ms"`
}

type wireInterpretation struct {
	Subject      *string          `json:"subject"`
	Producto     *string          `json:"producto"`
	Category     *string          `json:"category"`
	Categoria    *string          `json:"categoria"`
	Attributes   []string         `json:"attributes"`
	Atributos    []string         `json:"atributos"`
	PriceFilter  *wirePriceFilter `json:"price_filter"`
	FiltroPrecio *wirePriceFilter `json:"filtro_precio"`
}

type wirePriceFilter struct {
	Min       *flexNumber `json:"min"`
	Minimo    *flexNumber `json:"minimo"`
	Max       *flexNumber `json:"max"`
	Maximo    *flexNumber `json:"maximo"`
	Tendency  *string     `json:"tendency"`
	Tendencia *string     `json:"tendencia"`
}

type wireCorrection struct {
	Applied        *bool        `json:"applied"`
	Aplicada       *bool        `json:"aplicada"`
	CorrectedQuery *string      `json:"corrected_query"`
	QueryCorregida *string      `json:"query_corregida"`
	Changes        []wireChange `json:"changes"`
	Cambios        []wireChange `json:"cambios"`
}

type wireChange struct {
	From       *string     `json:"from"`
	Original   *string     `json:"original"`
	To         *string     `json:"to"`
	Corregido  *string     `json:"corregido"`
	Confidence *flexNumber `json:"confidence"`
	Confianza  *flexNumber `json:"confianza"`
}

type wireMatch struct {
	ID           *flexNumber `json:"id"`
	IDProducto   *flexNumber `json:"id_producto"`
	Name         *string     `json:"name"`
	Nombre       *string     `json:"nombre"`
	Price        *flexNumber `json:"price"`
	Precio       *flexNumber `json:"precio"`
	Category     *string     `json:"category"`
	Categoria    *string     `json:"categoria"`
	Image        *string     `json:"image"`
	Imagen       *string     `json:"imagen"`
	Cantidad     *flexNumber `json:"cantidad"`
	Stock        *flexNumber `json:"stock"`
	Available    *bool       `json:"available"`
	MatchScore   *flexNumber `json:"match_score"`
	Score        *flexNumber `json:"score"`
	MatchReasons []string    `json:"match_reasons"`
	Reasons      []string    `json:"reasons"`
}

// flexNumber accepts a JSON number or a numeric string ("12.50").
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("numeric string: %w", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", s, err)
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = flexNumber(f)
	return nil
}
