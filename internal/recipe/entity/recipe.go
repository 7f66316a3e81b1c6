package entity

import "time"

// Preparation time units.
const (
	UnitMinutes = "Minutes"
	UnitHours   = "Hours"
)

// Servings units.
const (
	UnitPortions = "Portions"
	UnitPieces   = "Pieces"
	UnitPeople   = "People"
)

var (
	TimeUnits     = []string{UnitMinutes, UnitHours}
	ServingsUnits = []string{UnitPortions, UnitPieces, UnitPeople}
)

// Recipe is a row of the recipes table joined with its category and author
// names for display.
type Recipe struct {
	ID                     int64     `db:"id"`
	Title                  string    `db:"title"`
	Description            string    `db:"description"`
	Slug                   string    `db:"slug"`
	PreparationTime        int       `db:"preparation_time"`
	PreparationTimeUnit    string    `db:"preparation_time_unit"`
	Servings               int       `db:"servings"`
	ServingsUnit           string    `db:"servings_unit"`
	PreparationSteps       string    `db:"preparation_steps"`
	PreparationStepsIsHTML bool      `db:"preparation_steps_is_html"`
	IsPublished            bool      `db:"is_published"`
	Cover                  string    `db:"cover"`
	CategoryID             *int64    `db:"category_id"`
	AuthorID               *int64    `db:"author_id"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`

	CategoryName string `db:"category_name"`
	AuthorName   string `db:"author_name"`
}

// Category groups recipes.
type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
