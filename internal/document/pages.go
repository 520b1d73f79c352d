package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPageSelection is returned for a malformed page selection
	ErrInvalidPageSelection = errors.New("invalid page selection")

	// ErrPageOutOfRange is returned when a selected page does not exist
	ErrPageOutOfRange = errors.New("page out of range")
)

// ParsePageSelection converts a 1-indexed selection such as "3", "1,2,5" or
// "2-4" into 0-indexed page numbers. An empty selection returns nil, meaning
// every page. Lists and ranges cannot be mixed.
func ParsePageSelection(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, nil

	case strings.Contains(s, ",") && strings.Contains(s, "-"):
		return nil, fmt.Errorf("%w: cannot mix comma-separated and range formats", ErrInvalidPageSelection)

	case strings.Contains(s, ","):
		var pages []int
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := parsePageNumber(part)
			if err != nil {
				return nil, err
			}
			pages = append(pages, n-1)
		}
		return pages, nil

	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: range must look like 2-5, got %q", ErrInvalidPageSelection, s)
		}
		start, err := parsePageNumber(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, err
		}
		end, err := parsePageNumber(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		if start >= end {
			return nil, fmt.Errorf("%w: start page %d must be lower than end page %d", ErrInvalidPageSelection, start, end)
		}
		pages := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			pages = append(pages, p-1)
		}
		return pages, nil
	}

	n, err := parsePageNumber(s)
	if err != nil {
		return nil, err
	}
	return []int{n - 1}, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrInvalidPageSelection, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: page numbers must be positive, got %d", ErrInvalidPageSelection, n)
	}
	return n, nil
}
