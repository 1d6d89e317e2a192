package domain

// CountdownTime is the remaining time until a target instant, broken down
// for display. It is derived and never stored.
// When IsFinished is true all numeric fields are zero.
type CountdownTime struct {
	Days       int64 `json:"days"`
	Hours      int64 `json:"hours"`
	Minutes    int64 `json:"minutes"`
	Seconds    int64 `json:"seconds"`
	IsFinished bool  `json:"is_finished"`
}

// TotalMillis reassembles the countdown into milliseconds.
func (c CountdownTime) TotalMillis() int64 {
	return c.Days*86_400_000 + c.Hours*3_600_000 + c.Minutes*60_000 + c.Seconds*1_000
}
