package domain

import (
	"regexp"
	"time"
)

const (
	CatalogNameMaxLength = 256
	SlugMaxLength        = 50
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Term is a named slug. Categories (films, books, music) and genres share
// the shape and live in separate collections.
type Term struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a work that can be reviewed. Genres and Category hold slugs;
// Rating is the average review score or nil when unreviewed.
type Title struct {
	ID          int64
	Name        string
	Year        int
	Description string
	Genres      []string
	Category    string
	Rating      *float64
}

// TitlePatch carries optional title field updates.
type TitlePatch struct {
	Name        *string
	Year        *int
	Description *string
	Genres      *[]string
	Category    *string
}

// ValidateSlug returns a field message when slug is malformed, or "".
func ValidateSlug(slug string) string {
	switch {
	case slug == "":
		return "this field is required"
	case len(slug) > SlugMaxLength:
		return "ensure this field has no more than 50 characters"
	case !slugPattern.MatchString(slug):
		return "enter a valid slug: letters, digits, underscores or hyphens"
	}
	return ""
}

// ValidateYear rejects release years in the future.
func ValidateYear(year int, now time.Time) string {
	if year > now.Year() {
		return "year cannot be greater than the current year"
	}
	return ""
}
