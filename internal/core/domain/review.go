package domain

import "time"

const (
	MinScore = 1
	MaxScore = 10
)

// Review is a scored opinion on a title. AuthorID and TitleID are fixed at
// creation; one author reviews a title at most once. Author is the author's
// username, kept for display.
type Review struct {
	ID       int64
	TitleID  int64
	AuthorID int64
	Author   string
	Text     string
	Score    int
	PubDate  time.Time
}

// Comment is a reply to a review.
type Comment struct {
	ID       int64
	ReviewID int64
	AuthorID int64
	Author   string
	Text     string
	PubDate  time.Time
}

// ValidateScore returns a field message when score is outside 1..10.
func ValidateScore(score int) string {
	if score < MinScore || score > MaxScore {
		return "score must be between 1 and 10"
	}
	return ""
}
