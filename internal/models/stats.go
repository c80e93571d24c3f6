package models

// CategoryCount is a reports-per-category aggregate row.
type CategoryCount struct {
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}

// CityCount is a reports-per-city aggregate row.
type CityCount struct {
	City  string `db:"city" json:"city"`
	Count int    `db:"count" json:"count"`
}

// StatusCount is a reports-per-status aggregate row.
type StatusCount struct {
	Status ReportStatus `db:"status" json:"status"`
	Count  int          `db:"count" json:"count"`
}

// MonthCount is a reports-per-calendar-month aggregate row, month formatted
// as YYYY-MM.
type MonthCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

// CrimeStats is the aggregate statistics payload for staff dashboards.
type CrimeStats struct {
	ByCategory []CategoryCount `json:"crime_by_category"`
	ByCity     []CityCount     `json:"crime_by_location"`
	ByStatus   []StatusCount   `json:"crime_by_status"`
	ByMonth    []MonthCount    `json:"crime_by_month"`
}
