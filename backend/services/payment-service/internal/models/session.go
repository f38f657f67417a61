package models

import "time"

// ParkingSession is a vehicle's stay, owned by the session service and read here.
type ParkingSession struct {
	ID             int64      `db:"id" json:"session_id"`
	LicensePlate   string     `db:"license_plate" json:"license_plate"`
	EntryTimestamp time.Time  `db:"entry_timestamp" json:"entry_timestamp"`
	ExitTimestamp  *time.Time `db:"exit_timestamp" json:"exit_timestamp"`
	IsActive       bool       `db:"is_active" json:"is_active"`
}

// SessionHistory is a session with every payment attempt recorded against it.
type SessionHistory struct {
	ParkingSession
	Payments []PaymentTransaction
}
