package services

import "tutorlink_go/models"

// Actors allowed to drive a transition.
const (
	ActorStudent   = "student"
	ActorTutor     = "tutor"
	ActorAdmin     = "admin"
	ActorScheduler = "scheduler"
)

type transitionKey struct{ from, to string }

// bookingTransitions lists every legal booking move and who may make it.
var bookingTransitions = map[transitionKey][]string{
	{models.BookingPending, models.BookingAccepted}:   {ActorTutor, ActorAdmin},
	{models.BookingPending, models.BookingDeclined}:   {ActorTutor, ActorAdmin},
	{models.BookingPending, models.BookingCancelled}:  {ActorStudent, ActorAdmin},
	{models.BookingAccepted, models.BookingActive}:    {ActorTutor, ActorAdmin, ActorScheduler},
	{models.BookingAccepted, models.BookingCancelled}: {ActorStudent, ActorTutor, ActorAdmin},
	{models.BookingActive, models.BookingCompleted}:   {ActorTutor, ActorAdmin, ActorScheduler},
}

var applicationTransitions = map[transitionKey]bool{
	{models.ApplicationPending, models.ApplicationApproved}: true,
	{models.ApplicationPending, models.ApplicationRejected}: true,
}

// CheckBookingTransition returns ErrInvalidTransition for an unknown move and
// ErrForbidden when the move exists but not for actor.
func CheckBookingTransition(from, to, actor string) error {
	actors, ok := bookingTransitions[transitionKey{from, to}]
	if !ok {
		return ErrInvalidTransition
	}
	for _, a := range actors {
		if a == actor {
			return nil
		}
	}
	return ErrForbidden
}

func CheckApplicationTransition(from, to string) error {
	if !applicationTransitions[transitionKey{from, to}] {
		return ErrInvalidTransition
	}
	return nil
}

// BlockingBookingStatuses hold a tutor's time.
var BlockingBookingStatuses = []string{models.BookingPending, models.BookingAccepted, models.BookingActive}
