package domain

// PageMetadata describes where a page of a listing sits in the whole result.
type PageMetadata struct {
	CurrentPage  int
	FirstPage    int
	LastPage     int
	PageSize     int
	TotalRecords int
}

func NewPageMetadata(totalRecords, page, pageSize int) *PageMetadata {
	if totalRecords == 0 {
		return &PageMetadata{}
	}

	return &PageMetadata{
		CurrentPage:  page,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		PageSize:     pageSize,
		TotalRecords: totalRecords,
	}
}
