package domain

import "time"

// Station is the dimension row keyed by StationID. Rows are upserted:
// created_at is set on first insert and updated_at refreshed on every write,
// so those columns live in the sink rather than here.
type Station struct {
	StationID      string  `json:"station_id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Capacity       int     `json:"capacity"`
	Arrondissement string  `json:"arrondissement"`
	CodeINSEE      string  `json:"code_insee"`
}

// Availability is one fact row: the observed state of a station at a point
// in time. Rows are append-only and carry no natural key; StationID is a
// logical reference to the stations dimension.
type Availability struct {
	StationID       string    `json:"station_id"`
	BikesAvailable  int       `json:"num_bikes_available"`
	BikesMechanical int       `json:"num_bikes_mechanical"`
	BikesEbike      int       `json:"num_bikes_ebike"`
	DocksAvailable  int       `json:"num_docks_available"`
	IsInstalled     bool      `json:"is_installed"`
	IsRenting       bool      `json:"is_renting"`
	IsReturning     bool      `json:"is_returning"`
	LastReported    time.Time `json:"last_reported"`
}
