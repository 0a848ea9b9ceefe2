package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// naiveISOLayout matches timestamps written without a zone offset, read as local time.
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}

	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		ts.Time = t
		return nil
	}

	t, err := time.ParseInLocation(naiveISOLayout, str, time.Local)
	if err != nil {
		return fmt.Errorf("parsing time %s: %v", str, err)
	}
	ts.Time = t
	return nil
}
