package program

type ProgramResponse struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Purchasable bool   `json:"purchasable"`
}

type ProgramsResponse struct {
	Programs []ProgramResponse `json:"programs"`
}
