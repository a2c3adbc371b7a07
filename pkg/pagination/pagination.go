package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize enforces the configured default and maximum page sizes.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// HasMore reports whether rows remain beyond the normalized page.
func (p Params) HasMore(total int) bool {
	n := p.Normalize()
	return total > n.Offset()+n.PageSize
}

// Page is the standard paginated result envelope.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	PageNum  int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// NewPage assembles a result envelope for the given slice and params.
func NewPage[T any](items []T, total int, params Params) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		PageNum:  n.Page,
		PageSize: n.PageSize,
		HasMore:  n.HasMore(total),
	}
}
