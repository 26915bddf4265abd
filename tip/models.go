package tip

import (
	"strings"
	"time"
)

// Step is one numbered item of a tip.
type Step struct {
	ID   string `json:"id"`
	Bold string `json:"bold"`
	Text string `json:"text"`
}

// Content is the body of a tip as stored in the content column.
type Content struct {
	Intro      string `json:"intro"`
	Steps      []Step `json:"steps"`
	Conclusion string `json:"conclusion"`
}

// Draft is a generated tip that has not been stored yet.
type Draft struct {
	Title    string
	Category string
	Content  Content
}

func (d Draft) usable() bool {
	return strings.TrimSpace(d.Title) != "" &&
		(strings.TrimSpace(d.Content.Intro) != "" || len(d.Content.Steps) > 0)
}

// Tip is the tip shown on one calendar day.
type Tip struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Content     Content   `json:"content"`
	DisplayDate time.Time `json:"display_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
