package models

// City is a top-level location a user may be scoped to.
type City struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	State string `db:"state" json:"state"`
}

// Locality belongs to exactly one city.
type Locality struct {
	ID     string `db:"id" json:"id"`
	CityID string `db:"city_id" json:"cityId"`
	Name   string `db:"name" json:"name"`
}
