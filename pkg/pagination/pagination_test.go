package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Request
		want Request
	}{
		{"defaults", Request{}, Request{Page: 1, Limit: DefaultLimit}},
		{"negative page", Request{Page: -3, Limit: 5}, Request{Page: 1, Limit: 5}},
		{"limit above max", Request{Page: 2, Limit: 1000}, Request{Page: 2, Limit: MaxLimit}},
		{"untouched", Request{Page: 4, Limit: 25}, Request{Page: 4, Limit: 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestTotalPagesIsCeiling(t *testing.T) {
	for total := 0; total <= 57; total++ {
		for limit := 1; limit <= 12; limit++ {
			want := (total + limit - 1) / limit
			assert.Equal(t, want, TotalPages(total, limit), "total=%d limit=%d", total, limit)
		}
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Request{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, Request{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, Request{Page: 0, Limit: 0}.Offset())
}

func TestNewBeyondLastPage(t *testing.T) {
	page := New[string](nil, Request{Page: 9, Limit: 10}, 15)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 9, page.Page)
}
