package domain

type Room struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Capacity    int      `json:"capacity"`
	Price       float64  `json:"price"`
	Image       string   `json:"image,omitempty"`
	Amenities   []string `json:"amenities"`
}

// SearchQuery is one page of a free-text room search. Pages start at 1.
type SearchQuery struct {
	Text string
	Page int
}

func NewSearchQuery(text string, page int) SearchQuery {
	if page < 1 {
		page = 1
	}
	return SearchQuery{Text: text, Page: page}
}
