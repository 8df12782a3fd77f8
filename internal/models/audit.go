package models

import "time"

type AuditEntry struct {
	ID          int64     `json:"id"`
	ActorUserID int64     `json:"actor_user_id"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type"`
	TargetID    int64     `json:"target_id"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

type DashboardSummary struct {
	Brands          int            `json:"brands"`
	Members         int            `json:"members"`
	CarsByStatus    map[string]int `json:"cars_by_status"`
	PendingBookings int            `json:"pending_bookings"`
	PendingListings int            `json:"pending_listings"`
	OpenTickets     int            `json:"open_tickets"`
}
