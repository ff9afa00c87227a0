package stats

import "donationBoard/internal/model"

type Stats struct {
	Events          int     `json:"eventos"`
	TotalRaised     float64 `json:"arrecadado"`
	Donations       int     `json:"doacoes"`
	AverageDonation float64 `json:"media"`
}

// Calculate derives the aggregates shown next to the event list. The average is 0
// when there are no donations.
func Calculate(events []model.Event) Stats {
	s := Stats{Events: len(events)}
	for _, e := range events {
		s.TotalRaised += e.Raised
		s.Donations += len(e.Donations)
	}
	if s.Donations > 0 {
		s.AverageDonation = s.TotalRaised / float64(s.Donations)
	}
	return s
}
