package dto

// DefaultPageLimit tamaño de página cuando el cliente no indica limit.
const DefaultPageLimit = 20

// PageRequest paginación por limit/offset (query string).
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage limit 0 significa "por defecto", no "todo".
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse HasMore es true si la página vino llena; puede haber más entradas.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPageResponse arma los metadatos a partir de la cantidad devuelta.
func NewPageResponse(req PageRequest, returned int) PageResponse {
	return PageResponse{Limit: req.Limit, Offset: req.Offset, HasMore: returned >= req.Limit}
}

// ErrorResponse cuerpo de error HTTP. Code es estable; Message se muestra tal cual.
// Overage solo viene con EXCEEDS_AVAILABLE_MASS y Fields solo con VALIDATION.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Overage string            `json:"overage,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
