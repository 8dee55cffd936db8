package curator

import (
	"strings"

	"curator-go/internal/model"
)

// ScanResult is one hit produced by a client-side list scan: either a
// header whose own name/description matched, or a matching item together
// with its owning header.
type ScanResult struct {
	Header model.ListHeader
	Item   *model.ListItem
}

// matchHeader reports whether the query matches a header's searchable text.
func matchHeader(h model.ListHeader, query string) bool {
	return containsFold(h.Name, query) || containsFold(h.Description, query)
}

// matchItem reports whether the query matches an item's searchable text.
func matchItem(it model.ListItem, query string) bool {
	return containsFold(it.Name, query) || containsFold(it.Description, query)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ScanBreadthFirst scans an already-loaded collection of lists level by
// level: all matching headers are yielded first, then the matching items
// of every list. Used when the shadow index is unavailable or the set is
// small enough that a database round trip is not worth it.
func ScanBreadthFirst(lists []model.ListWithItems, query string) []ScanResult {
	var results []ScanResult

	for _, l := range lists {
		if matchHeader(l.Header, query) {
			results = append(results, ScanResult{Header: l.Header})
		}
	}
	for _, l := range lists {
		for i := range l.Items {
			if matchItem(l.Items[i], query) {
				results = append(results, ScanResult{Header: l.Header, Item: &l.Items[i]})
			}
		}
	}

	return results
}

// ScanDepthFirst scans list by list: a matching header is yielded
// immediately followed by its matching items. Produces the same result set
// as ScanBreadthFirst for any query; only the ordering differs.
func ScanDepthFirst(lists []model.ListWithItems, query string) []ScanResult {
	var results []ScanResult

	for _, l := range lists {
		if matchHeader(l.Header, query) {
			results = append(results, ScanResult{Header: l.Header})
		}
		for i := range l.Items {
			if matchItem(l.Items[i], query) {
				results = append(results, ScanResult{Header: l.Header, Item: &l.Items[i]})
			}
		}
	}

	return results
}
