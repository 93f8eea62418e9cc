package core

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a pagination request. Page numbers start at 1.
type Page struct {
	Number int `query:"page" json:"page"`
	Limit  int `query:"limit" json:"limit"`
}

// Clean applies defaults and bounds to the page.
func (p *Page) Clean(maxLimit ...int) {
	max := MaxPageSize
	if len(maxLimit) > 0 && maxLimit[0] > 0 {
		max = maxLimit[0]
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > max {
		p.Limit = max
	}
}

func (p Page) Offset() uint64 {
	return uint64((p.Number - 1) * p.Limit)
}

type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Page:        p.Number,
		Limit:       p.Limit,
		Total:       total,
		TotalPages:  pages,
		HasNext:     p.Number < pages,
		HasPrevious: p.Number > 1,
	}
}
