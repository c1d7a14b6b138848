package types

import "time"

// Color is a dynamic-pricing calendar tier. The grid operator publishes one
// color per day; RED days are the most expensive and double as a proxy for
// high-demand days in other plan families.
type Color string

const (
	ColorBlue  Color = "BLUE"
	ColorWhite Color = "WHITE"
	ColorRed   Color = "RED"
)

// ColorDay assigns a pricing color to one calendar day. The calendar is
// sourced externally and may not cover the whole simulated period.
type ColorDay struct {
	Date  time.Time `json:"date"`
	Color Color     `json:"color"`
}

// DayKey collapses a time to a calendar-day map key in its own location.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
