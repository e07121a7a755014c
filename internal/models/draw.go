package models

import (
	"time"
)

// DrawMethod is how a winning ticket was chosen
type DrawMethod string

const (
	DrawMethodManual  DrawMethod = "manual"
	DrawMethodLottery DrawMethod = "lottery"
	DrawMethodRNG     DrawMethod = "rng"
)

// DrawType distinguishes intermediate prize draws from the final one
type DrawType string

const (
	DrawTypePreDraw  DrawType = "pre_draw"
	DrawTypeMainDraw DrawType = "main_draw"
)

// Draw records the winner of one prize
type Draw struct {
	ID            string     `bson:"_id" json:"id"`
	RaffleID      string     `bson:"raffleId" json:"raffleId"`
	PrizeID       string     `bson:"prizeId" json:"prizeId"`
	TicketNumber  string     `bson:"ticketNumber" json:"ticketNumber"`
	Winner        BuyerInfo  `bson:"winner" json:"winner"`
	Reference     string     `bson:"reference" json:"reference"`
	Method        DrawMethod `bson:"method" json:"method"`
	DrawType      DrawType   `bson:"drawType" json:"drawType"`
	LotteryNumber string     `bson:"lotteryNumber,omitempty" json:"lotteryNumber,omitempty"`
	Digits        int        `bson:"digits,omitempty" json:"digits,omitempty"`
	Announced     bool       `bson:"announced" json:"announced"`
	AnnouncedAt   *time.Time `bson:"announcedAt,omitempty" json:"announcedAt,omitempty"`
	CreatedBy     string     `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
}

// DrawRequest asks the selector for one winner
type DrawRequest struct {
	PrizeID       string     `json:"prizeId" binding:"required"`
	Method        DrawMethod `json:"method" binding:"required"`
	DrawType      DrawType   `json:"drawType" binding:"required"`
	TicketNumber  string     `json:"ticketNumber"`
	LotteryNumber string     `json:"lotteryNumber"`
	Digits        int        `json:"digits"`
}

// PublicDraw hides the winner's contact details
type PublicDraw struct {
	ID           string    `json:"id"`
	PrizeID      string    `json:"prizeId"`
	TicketNumber string    `json:"ticketNumber"`
	WinnerName   string    `json:"winnerName"`
	WinnerCity   string    `json:"winnerCity,omitempty"`
	DrawType     DrawType  `json:"drawType"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public projects an announced draw for buyers.
func (d *Draw) Public() PublicDraw {
	return PublicDraw{
		ID:           d.ID,
		PrizeID:      d.PrizeID,
		TicketNumber: d.TicketNumber,
		WinnerName:   d.Winner.Name,
		WinnerCity:   d.Winner.City,
		DrawType:     d.DrawType,
		CreatedAt:    d.CreatedAt,
	}
}
