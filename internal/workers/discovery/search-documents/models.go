package searchdocuments

import "discovery-workers/internal/models"

type Input struct {
	Query   string               `json:"query"`
	Filters models.SearchFilters `json:"filters"`
	Sort    *models.SortSpec     `json:"sort,omitempty"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
	Facets  []string             `json:"facets,omitempty"`
}

func (in *Input) toRequest() models.SearchRequest {
	return models.SearchRequest{
		Query:   in.Query,
		Filters: in.Filters,
		Sort:    in.Sort,
		Page:    in.Page,
		Size:    in.Size,
		Facets:  in.Facets,
	}
}

type Output struct {
	SearchResult *models.SearchResult `json:"searchResult"`
}

func (o *Output) ResultSize() int {
	return len(o.SearchResult.Documents)
}
