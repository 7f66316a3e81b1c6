package pagination

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when MakeWindow is called with a
// non-positive window size or a current page outside the page range.
var ErrInvalidArgument = errors.New("invalid argument")

// Window is the slice of page numbers shown in pagination controls.
type Window struct {
	Pagination          []int
	PageRange           []int
	RangeSize           int
	CurrentPage         int
	TotalPages          int
	StartIndex          int
	EndIndex            int
	FirstPageOutOfRange bool
	LastPageOutOfRange  bool
}

// MakeWindow computes a window of at most size page numbers around current.
// pageRange is expected to hold the page numbers 1..N in order.
//
// Near the edges the window is clamped instead of shrinking, so pages 1 and 2
// of [1..20] with size 4 both yield [1 2 3 4], and pages 18..20 yield
// [17 18 19 20].
func MakeWindow(pageRange []int, size, current int) (Window, error) {
	if size <= 0 {
		return Window{}, fmt.Errorf("%w: window size must be greater than 0", ErrInvalidArgument)
	}
	if len(pageRange) == 0 {
		return Window{
			Pagination:  []int{},
			PageRange:   []int{},
			RangeSize:   size,
			CurrentPage: current,
		}, nil
	}
	first, last := pageRange[0], pageRange[len(pageRange)-1]
	if current < first || current > last {
		return Window{}, fmt.Errorf("%w: current page must be between %d and %d", ErrInvalidArgument, first, last)
	}

	half := (size + 1) / 2
	total := len(pageRange)
	start := current - half
	end := start + size

	if start < 0 {
		end += -start
		start = 0
	}
	if end > total {
		start = max(0, start-(end-total))
		end = total
	}

	window := make([]int, end-start)
	copy(window, pageRange[start:end])

	return Window{
		Pagination:          window,
		PageRange:           pageRange,
		RangeSize:           size,
		CurrentPage:         current,
		TotalPages:          total,
		StartIndex:          start,
		EndIndex:            end,
		FirstPageOutOfRange: current > half,
		LastPageOutOfRange:  end < total,
	}, nil
}
