package events

import "time"

var ApplicationRecordedTopic = "ApplicationRecordedEvent"

type ApplicationRecorded struct {
	JobID           string
	Position        string
	Company         string
	Link            string
	Similarity      float64
	ViaSeek         bool
	ViaEmail        bool
	EmailsContacted []string
	AppliedOn       time.Time
}
