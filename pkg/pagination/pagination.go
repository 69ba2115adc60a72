package pagination

// DefaultPerPage is the standard page size when one is not provided.
const DefaultPerPage = 10

// MaxPerPage caps how many rows any page can request.
const MaxPerPage = 100

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Normalize clamps the inputs into usable values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Meta describes a result page. A page beyond the end is not an error; it
// simply carries no items alongside the true totals.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// NewMeta computes page metadata for a total row count.
func NewMeta(params Params, total int64) Meta {
	n := params.Normalize()
	pages := int((total + int64(n.PerPage) - 1) / int64(n.PerPage))
	return Meta{
		Total:   total,
		Page:    n.Page,
		PerPage: n.PerPage,
		Pages:   pages,
	}
}
