package entities

type Application struct {
	AppliedOn       Timestamp `json:"applied_on"`
	SimilarityScore float64   `json:"similarity_score"`
	AppliedViaSeek  bool      `json:"applied_via_seek"`
	AppliedViaEmail bool      `json:"applied_via_email"`
	EmailsContacted []string  `json:"emails_contacted"`
	Position        string    `json:"position"`
	Link            string    `json:"link"`
}

type EmailContact struct {
	LastContacted Timestamp `json:"last_contacted"`
	JobsContacted []string  `json:"jobs_contacted"`
}
