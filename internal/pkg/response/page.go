package response

import "github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"

// PageResponse is the standard wrapper for list endpoints.
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// NewPage converts one page of domain values into their response shape.
// Items is never null in the JSON output.
func NewPage[S, T any](list []S, convert func(S) T, params request.ListParams, total int) PageResponse[T] {
	items := make([]T, len(list))
	for i, v := range list {
		items[i] = convert(v)
	}

	return PageResponse[T]{
		Items:    items,
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
	}
}
