package dto

// EventCard is one entry of an event list as shown to visitors. Date holds
// the display range (`20.06.2025` or `20.06.2025 – 22.06.2025`).
type EventCard struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime,omitempty"`
	Description *string `json:"description"`
	Venue       *string `json:"venue"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"imageUrl"`
	TicketURL   *string `json:"ticketUrl"`
}

// EventListResponse wraps the cards visible under Filter.
type EventListResponse struct {
	Filter string      `json:"filter"`
	Events []EventCard `json:"events"`
}

// EventFormRequest carries draft fields by JSON name in display format
// (`DD.MM.YYYY`, `HH:mm`). Fields left out keep their current value.
type EventFormRequest map[string]string

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ExportQuery selects the export format and list filter.
type ExportQuery struct {
	Format string `form:"format"`
	Filter string `form:"filter"`
}
