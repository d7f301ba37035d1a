package feed

// maxVisiblePages bounds the numeric entries shown by the pager widget.
const maxVisiblePages = 5

// PageItem is one pager entry: a concrete page number or a gap ellipsis.
type PageItem struct {
	Page int
	Gap  bool
}

// PageNumbers computes the pager window for current within total pages:
// a window of at most maxVisiblePages numbers centered on current, clamped
// to [1, total], with a leading "1 …" or trailing "… total" spliced in
// whenever the window does not already touch that boundary. A single page
// yields no entries.
func PageNumbers(current, total int) []PageItem {
	if total <= 1 {
		return nil
	}

	start := current - maxVisiblePages/2
	if start < 1 {
		start = 1
	}
	end := start + maxVisiblePages - 1
	if end > total {
		end = total
	}
	if end-start+1 < maxVisiblePages {
		start = end - maxVisiblePages + 1
		if start < 1 {
			start = 1
		}
	}

	var items []PageItem
	if start > 1 {
		items = append(items, PageItem{Page: 1})
		if start > 2 {
			items = append(items, PageItem{Gap: true})
		}
	}
	for p := start; p <= end; p++ {
		items = append(items, PageItem{Page: p})
	}
	if end < total {
		if end < total-1 {
			items = append(items, PageItem{Gap: true})
		}
		items = append(items, PageItem{Page: total})
	}
	return items
}
