package store

import "volterra/admin-service/internal/models"

type ticketRule struct {
	from []string
	to   string
}

// An empty target keeps the current status.
var ticketActions = map[string]ticketRule{
	"start":   {from: []string{models.TicketOpen}, to: models.TicketInProgress},
	"resolve": {from: []string{models.TicketOpen, models.TicketInProgress}, to: models.TicketResolved},
	"close":   {from: []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved}, to: models.TicketClosed},
	"reopen":  {from: []string{models.TicketResolved, models.TicketClosed}, to: models.TicketOpen},
	"assign":  {from: []string{models.TicketOpen, models.TicketInProgress}},
}

var bookingTransitions = map[string][]string{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

var listingTransitions = map[string][]string{
	models.ListingPending:  {models.ListingApproved, models.ListingRejected},
	models.ListingApproved: {models.ListingSold, models.ListingRejected},
}

func KnownTicketAction(action string) bool {
	_, ok := ticketActions[action]
	return ok
}

func ValidTicketTransition(action, fromStatus string) bool {
	rule, ok := ticketActions[action]
	if !ok {
		return false
	}
	return contains(rule.from, fromStatus)
}

// TicketActionTarget returns the status a ticket moves to after action.
func TicketActionTarget(action, fromStatus string) string {
	rule := ticketActions[action]
	if rule.to == "" {
		return fromStatus
	}
	return rule.to
}

func ValidBookingTransition(fromStatus, toStatus string) bool {
	return contains(bookingTransitions[fromStatus], toStatus)
}

func ValidListingTransition(fromStatus, toStatus string) bool {
	return contains(listingTransitions[fromStatus], toStatus)
}

func contains(values []string, value string) bool {
	for _, item := range values {
		if item == value {
			return true
		}
	}
	return false
}
