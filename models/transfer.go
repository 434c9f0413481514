package models

type Direction string

const (
	DirectionArrival   Direction = "Arrival"
	DirectionDeparture Direction = "Departure"
)

// ClubPlaceholder stands in for a club the listing page did not link.
const ClubPlaceholder = "N/A"

// TransferRecord is one row of the transfers table
type TransferRecord struct {
	ID        int64        `json:"id" db:"id"`
	Player    string       `json:"player" db:"player"`
	FromClub  string       `json:"from_club" db:"from_club"`
	ToClub    string       `json:"to_club" db:"to_club"`
	Fee       string       `json:"fee" db:"fee"`
	Type      Direction    `json:"type" db:"type"`
	PlayerURL string       `json:"player_url" db:"player_url"`
	Agent     AgentOutcome `json:"agent_name" db:"agent_name"`
}
