package models

// Feedback is an educator note about a student.
type Feedback struct {
	ID           int64  `json:"id"`
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name,omitempty"`
	EducatorID   int64  `json:"educator_id,omitempty"`
	EducatorName string `json:"educator_name,omitempty"`
	Category     string `json:"category,omitempty"`
	Comment      string `json:"comment"`
	Rating       int    `json:"rating,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// FeedbackPage is a normalised page of feedback entries.
type FeedbackPage struct {
	Items       []Feedback `json:"items"`
	TotalCount  int        `json:"total_count"`
	CurrentPage int        `json:"current_page"`
}

// FeedbackFilter scopes feedback listing.
type FeedbackFilter struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	SearchPhrase string `json:"search_phrase"`
	StudentID    int64  `json:"student_id,omitempty"`
}

// FeedbackInput is the payload forwarded to the feedback create endpoint.
type FeedbackInput struct {
	StudentID int64  `json:"student_id"`
	Category  string `json:"category,omitempty"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating,omitempty"`
}
