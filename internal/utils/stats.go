package utils

import "marketplace/internal/domain"

// StatusCounts is a per-status tally of orders plus their total
type StatusCounts struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}

// TallyOrderStatuses counts statuses over the fixed order-status enumeration.
// Every known status is present in the result; unknown statuses are skipped.
func TallyOrderStatuses(statuses []string) StatusCounts {
	out := StatusCounts{ByStatus: make(map[string]int64, len(domain.OrderStatuses))}
	for _, s := range domain.OrderStatuses {
		out.ByStatus[s] = 0
	}
	for _, s := range statuses {
		if _, ok := out.ByStatus[s]; !ok {
			continue
		}
		out.ByStatus[s]++
		out.Total++
	}
	return out
}

// TotalPages returns how many pages of size hold total items
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return (int(total) + size - 1) / size
}
