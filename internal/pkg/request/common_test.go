package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListParamsNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         ListParams
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"defaults", ListParams{}, 1, 20, 0},
		{"explicit", ListParams{Page: 3, PageSize: 10}, 3, 10, 20},
		{"negative page", ListParams{Page: -2, PageSize: 5}, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}
