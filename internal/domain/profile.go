package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayState is a profile's rota state for one calendar day.
type DayState string

// DayState constants
const (
	DayActive  DayState = "ACTIVE"
	DayResting DayState = "RESTING"
)

// Flip returns the opposite state.
func (s DayState) Flip() DayState {
	if s == DayActive {
		return DayResting
	}
	return DayActive
}

// Schedule is a month of daily rota states. Days[i] is calendar day i+1.
type Schedule struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []DayState `json:"days"`
}

// Len returns the number of tracked days.
func (s Schedule) Len() int {
	return len(s.Days)
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	days := make([]DayState, len(s.Days))
	copy(days, s.Days)
	return Schedule{Year: s.Year, Month: s.Month, Days: days}
}

// ProfileEntity is one operated betting account.
type ProfileEntity struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"owner_id"`
	HouseID  string          `json:"house_id"`
	Balance  decimal.Decimal `json:"balance"`
	AvgStake decimal.Decimal `json:"avg_stake"`
	Schedule Schedule        `json:"schedule"`
}

// Clone returns a deep copy, including the schedule.
func (p *ProfileEntity) Clone() *ProfileEntity {
	c := *p
	c.Schedule = p.Schedule.Clone()
	return &c
}

// House is a bookmaker house operated through a distributor.
type House struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DistributorID string `json:"distributor_id"`
}
