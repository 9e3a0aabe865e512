package model

import (
	"strconv"
	"time"
)

// Item mirrors one entry of the on-chain item list.
// ID is the entry's position in that list; nothing on the chain updates or deletes it.
type Item struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// Added formats the creation time the way the list views show it.
func (it Item) Added() string {
	if it.Timestamp.IsZero() {
		return "-"
	}
	return it.Timestamp.Local().Format("2006-01-02 15:04:05")
}

// Label is the short "#id name" form used in headers and alerts.
func (it Item) Label() string {
	return "#" + strconv.FormatUint(it.ID, 10) + " " + it.Name
}
