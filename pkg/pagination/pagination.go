// Package pagination holds the page request/response contract shared by every listing endpoint.
package pagination

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Request is a 1-based page request.
type Request struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned alongside list payloads.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of T plus its metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Meta
}

// Normalize clamps page to >= 1 and limit to [1, MaxLimit].
func Normalize(in Request) Request {
	page := in.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := in.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{Page: page, Limit: limit}
}

// Offset returns the row offset of the normalised request.
func (r Request) Offset() int {
	n := Normalize(r)
	return (n.Page - 1) * n.Limit
}

// TotalPages is ceil(total / limit); zero when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// NewMeta builds metadata for a normalised request.
func NewMeta(req Request, total int) Meta {
	n := Normalize(req)
	return Meta{
		Page:       n.Page,
		Limit:      n.Limit,
		Total:      total,
		TotalPages: TotalPages(total, n.Limit),
	}
}

// New assembles a page, never returning a nil Items slice.
func New[T any](items []T, req Request, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: NewMeta(req, total)}
}
