package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Service coordinates bookings and cancellations. Each call runs as one
// atomic transaction across the inventory, availability and appointment
// ledgers: either all three effects commit together or none apply.
type Service struct {
	store      Store
	maxRetries int
}

// NewService creates the coordinator. maxRetries bounds how often a call is
// retried after a serialization conflict before the failure surfaces.
func NewService(store Store, maxRetries int) *Service {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Service{
		store:      store,
		maxRetries: maxRetries,
	}
}

// Book reserves one dose of vaccine on day for patient. It decrements the
// dose count, claims the slot of the lexically smallest available caregiver
// and records the appointment, all in one transaction. Any failure rolls
// back every effect; inventory is checked first, so a day with no slots but
// an exhausted vaccine reports ErrOutOfStock.
func (s *Service) Book(ctx context.Context, patient string, day time.Time, vaccine string) (BookingConfirmation, error) {
	if patient == "" {
		return BookingConfirmation{}, fmt.Errorf("patient identity is required")
	}
	if strings.TrimSpace(vaccine) == "" {
		return BookingConfirmation{}, ErrUnknownVaccine
	}
	day = NormalizeDay(day)

	var out BookingConfirmation
	err := s.withRetry(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.DecrementDoses(ctx, vaccine, 1); err != nil {
			return err
		}

		caregiver, err := tx.ClaimSlot(ctx, day)
		if err != nil {
			return err
		}

		id, err := tx.NextAppointmentID(ctx)
		if err != nil {
			return fmt.Errorf("allocate appointment id: %w", err)
		}

		if err := tx.InsertAppointment(ctx, Appointment{
			ID:        id,
			Patient:   patient,
			Caregiver: caregiver,
			Vaccine:   vaccine,
			Day:       day,
		}); err != nil {
			return err
		}

		out = BookingConfirmation{AppointmentID: id, Caregiver: caregiver}
		return nil
	})
	if err != nil {
		return BookingConfirmation{}, err
	}
	return out, nil
}

// Cancel reverses a booking: it deletes the appointment, releases the
// (caregiver, day) slot and restores the consumed dose, in one transaction.
// Only the owning patient or the owning caregiver may cancel.
func (s *Service) Cancel(ctx context.Context, identity string, role Role, id int64) error {
	return s.withRetry(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}

		switch role {
		case RolePatient:
			if appt.Patient != identity {
				return ErrNotAuthorized
			}
		case RoleCaregiver:
			if appt.Caregiver != identity {
				return ErrNotAuthorized
			}
		default:
			return ErrNotAuthorized
		}

		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		if err := tx.ReleaseSlot(ctx, appt.Caregiver, appt.Day); err != nil {
			return err
		}
		return tx.IncrementDoses(ctx, appt.Vaccine, 1)
	})
}

// UploadAvailability offers a (caregiver, day) slot for booking.
func (s *Service) UploadAvailability(ctx context.Context, caregiver string, day time.Time) error {
	if caregiver == "" {
		return fmt.Errorf("caregiver identity is required")
	}
	day = NormalizeDay(day)
	return s.withRetry(ctx, func(ctx context.Context, tx Tx) error {
		return tx.AddSlot(ctx, caregiver, day)
	})
}

// AddDoses tops up the vaccine catalog, creating the vaccine if it does not
// exist yet.
func (s *Service) AddDoses(ctx context.Context, vaccine string, n int) error {
	if strings.TrimSpace(vaccine) == "" {
		return fmt.Errorf("vaccine name is required")
	}
	if n <= 0 {
		return fmt.Errorf("dose count must be positive")
	}
	return s.withRetry(ctx, func(ctx context.Context, tx Tx) error {
		return tx.UpsertVaccine(ctx, vaccine, n)
	})
}

// Schedule returns the caregivers offering day, in the same ascending order
// ClaimSlot uses, together with the vaccine catalog.
func (s *Service) Schedule(ctx context.Context, day time.Time) (DaySchedule, error) {
	day = NormalizeDay(day)

	caregivers, err := s.store.ListAvailableCaregivers(ctx, day)
	if err != nil {
		return DaySchedule{}, fmt.Errorf("list caregivers: %w", err)
	}
	vaccines, err := s.store.ListVaccines(ctx)
	if err != nil {
		return DaySchedule{}, fmt.Errorf("list vaccines: %w", err)
	}

	return DaySchedule{Day: day, Caregivers: caregivers, Vaccines: vaccines}, nil
}

// ListAppointments returns the identity's appointments ordered by id.
func (s *Service) ListAppointments(ctx context.Context, identity string, role Role) ([]Appointment, error) {
	appts, err := s.store.ListAppointmentsFor(ctx, identity, role)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.store.WithTx(ctx, fn)
		if !errors.Is(err, ErrTxConflict) {
			return err
		}
		if attempt < s.maxRetries {
			log.Printf("transaction conflict, retrying (attempt %d/%d)", attempt, s.maxRetries)
		}
	}
	return err
}
