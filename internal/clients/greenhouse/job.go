package greenhouse

import "time"

type Job struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AbsoluteURL string    `json:"absolute_url"`
	UpdatedAt   time.Time `json:"updated_at"`
	Content     string    `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}
