package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

// Page describes one page of a result set together with its navigation window.
type Page struct {
	Number     int
	PerPage    int
	TotalItems int
	NumPages   int
	Offset     int
	Window     Window
}

// HasPrevious reports whether a page exists before this one.
func (p Page) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page exists after this one.
func (p Page) HasNext() bool { return p.Number < p.NumPages }

// PreviousNumber returns the previous page number.
func (p Page) PreviousNumber() int { return p.Number - 1 }

// NextNumber returns the next page number.
func (p Page) NextNumber() int { return p.Number + 1 }

// ParsePage converts a raw "page" query value into a page number.
// Anything that is not a positive integer falls back to page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// New builds the Page for a result set of totalItems records.
// A page number past the last page is clamped to the last page. An empty
// result set still has one (empty) page.
func New(totalItems, perPage int, rawPage string, rangeSize int) (Page, error) {
	if perPage <= 0 {
		return Page{}, fmt.Errorf("%w: per page must be greater than 0", ErrInvalidArgument)
	}
	if totalItems < 0 {
		totalItems = 0
	}
	numPages := (totalItems + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}
	number := min(ParsePage(rawPage), numPages)

	pageRange := make([]int, numPages)
	for i := range pageRange {
		pageRange[i] = i + 1
	}
	window, err := MakeWindow(pageRange, rangeSize, number)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Number:     number,
		PerPage:    perPage,
		TotalItems: totalItems,
		NumPages:   numPages,
		Offset:     (number - 1) * perPage,
		Window:     window,
	}, nil
}
