package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/eventify-org/server/internal/validation"
)

const (
	DefaultSize = 10
	MaxSize     = 100

	// MaxNumber keeps (Number-1)*Size within a Postgres OFFSET.
	MaxNumber = math.MaxInt32 / MaxSize
)

// Page is a 1-based offset page request.
type Page struct {
	Number int
	Size   int
}

// DefaultPage is the first page with the default size.
func DefaultPage() Page {
	return Page{Number: 1, Size: DefaultSize}
}

// New validates an explicit page request. Zero values fall back to the
// defaults.
func New(number, size int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if size == 0 {
		size = DefaultSize
	}
	verr := &validation.Error{}
	if number < 1 {
		verr.Add("page", "must be at least 1")
	} else if number > MaxNumber {
		verr.Add("page", fmt.Sprintf("must be at most %d", MaxNumber))
	}
	if size < 1 || size > MaxSize {
		verr.Add("limit", "must be between 1 and 100")
	}
	if err := verr.OrNil(); err != nil {
		return Page{}, err
	}
	return Page{Number: number, Size: size}, nil
}

// Parse reads the page and limit query parameters.
func Parse(values url.Values) (Page, error) {
	number, err := parseInt(values.Get("page"), "page")
	if err != nil {
		return Page{}, err
	}
	size, err := parseInt(values.Get("limit"), "limit")
	if err != nil {
		return Page{}, err
	}
	if values.Has("page") && number == 0 {
		return Page{}, validation.NewError("page", "must be at least 1")
	}
	if values.Has("limit") && size == 0 {
		return Page{}, validation.NewError("limit", "must be between 1 and 100")
	}
	return New(number, size)
}

func parseInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewError(field, "must be an integer")
	}
	return value, nil
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

// Meta describes the page that was served.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewMeta(p Page, total int) Meta {
	return Meta{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: TotalPages(total, p.Size),
	}
}

// TotalPages is ceil(total/size), and 0 when there is nothing to page.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
