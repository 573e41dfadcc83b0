package pagination

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/eventify-org/server/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	page, err := Parse(url.Values{})
	require.NoError(t, err)
	require.Equal(t, DefaultPage(), page)
	require.Equal(t, 0, page.Offset())
}

func TestParseExplicit(t *testing.T) {
	page, err := Parse(url.Values{"page": {"3"}, "limit": {"25"}})
	require.NoError(t, err)
	require.Equal(t, 50, page.Offset())
	require.Equal(t, 25, page.Limit())
}

func TestParseRejectsOutOfRange(t *testing.T) {
	cases := []url.Values{
		{"page": {"0"}},
		{"page": {"-2"}},
		{"limit": {"0"}},
		{"limit": {"101"}},
		{"page": {"two"}},
		{"page": {"922337203685477581"}, "limit": {"100"}},
		{"page": {"21474837"}},
	}
	for _, values := range cases {
		_, err := Parse(values)
		require.Error(t, err, values.Encode())
		require.True(t, validation.IsInvalid(err), values.Encode())
	}
}

func TestParseLargestPageHasPositiveOffset(t *testing.T) {
	page, err := Parse(url.Values{"page": {strconv.Itoa(MaxNumber)}, "limit": {"100"}})
	require.NoError(t, err)
	require.Positive(t, page.Offset())
	require.Equal(t, (MaxNumber-1)*MaxSize, page.Offset())
}

func TestTotalPages(t *testing.T) {
	require.Equal(t, 0, TotalPages(0, 10))
	require.Equal(t, 1, TotalPages(1, 10))
	require.Equal(t, 1, TotalPages(10, 10))
	require.Equal(t, 2, TotalPages(11, 10))

	meta := NewMeta(Page{Number: 2, Size: 5}, 12)
	require.Equal(t, Meta{Page: 2, PageSize: 5, Total: 12, TotalPages: 3}, meta)
}
