package model

// Card summarizes a participant's progress in the event.
type Card struct {
	UserID   string `json:"user_id"`
	Approved int    `json:"approved"`
	Total    int    `json:"total"`
	// Progress is the status of the submission for the active prompt,
	// "unsubmitted" when there is none, or empty outside the event.
	Progress string `json:"progress,omitempty"`
}
