package models

// Prize is one prize slot of a (possibly multi-prize) raffle
type Prize struct {
	ID       string `bson:"id" json:"id"`
	Title    string `bson:"title" json:"title"`
	Position int    `bson:"position" json:"position"` // 1 is the main prize
}

// RemainingPrizes returns prizes minus the ones already drawn, in order.
func RemainingPrizes(prizes []Prize, draws []*Draw) []Prize {
	drawn := make(map[string]bool, len(draws))
	for _, d := range draws {
		drawn[d.PrizeID] = true
	}
	remaining := []Prize{}
	for _, p := range prizes {
		if !drawn[p.ID] {
			remaining = append(remaining, p)
		}
	}
	return remaining
}
