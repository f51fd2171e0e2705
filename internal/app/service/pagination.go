package service

const (
	DefaultProductPageSize = 12
	DefaultOrderPageSize   = 10
	DefaultContactPageSize = 20
	DefaultFeaturedLimit   = 8
	MaxPageSize            = 100
)

// PageInfo is shared by every paginated listing
type PageInfo struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// normalizePage clamps page to >= 1 and limit to 1..MaxPageSize
func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func offsetFor(page, limit int) int {
	return (page - 1) * limit
}

func newPageInfo(page, limit int, total int64) PageInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     int64(offsetFor(page, limit)+limit) < total,
		HasPrev:     page > 1,
	}
}
