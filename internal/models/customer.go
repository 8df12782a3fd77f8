package models

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

const (
	ListingPending  = "pending"
	ListingApproved = "approved"
	ListingRejected = "rejected"
	ListingSold     = "sold"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Member struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type ServiceBooking struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	CarID       *int64    `json:"car_id"`
	ServiceType string    `json:"service_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

type BookingDetail struct {
	ServiceBooking
	Member Member `json:"member"`
	Car    *Car   `json:"car"`
}

type SellListing struct {
	ID          int64     `json:"id"`
	CarID       int64     `json:"car_id"`
	MemberID    int64     `json:"member_id"`
	AskingPrice int64     `json:"asking_price"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListingDetail joins a sell listing with its car (and brand), member and images.
// List responses carry at most one image.
type ListingDetail struct {
	SellListing
	Car    Car        `json:"car"`
	Brand  Brand      `json:"brand"`
	Member Member     `json:"member"`
	Images []CarImage `json:"images"`
}

type Ticket struct {
	ID         int64     `json:"id"`
	MemberID   *int64    `json:"member_id"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Priority   string    `json:"priority"`
	Status     string    `json:"status"`
	AssignedTo *int64    `json:"assigned_to"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
