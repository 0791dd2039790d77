package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOutOfStock          = errors.New("not enough available doses")
	ErrUnknownVaccine      = errors.New("no such vaccine")
	ErrNoSuchSlot          = errors.New("no caregiver is available")
	ErrDuplicateID         = errors.New("appointment id already exists")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotAuthorized       = errors.New("not authorized to cancel this appointment")
	ErrSlotExists          = errors.New("availability slot already present")
	ErrTxConflict          = errors.New("transaction conflict, please retry")
)

// Store owns the three ledgers: vaccine inventory, availability slots and
// booked appointments. All mutations happen inside WithTx; the transaction
// commits only when fn returns nil, and a non-nil return discards every
// mutation fn made.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Read-only projections, outside any transaction.
	ListAvailableCaregivers(ctx context.Context, day time.Time) ([]string, error)
	ListVaccines(ctx context.Context) ([]VaccineStock, error)
	ListAppointmentsFor(ctx context.Context, identity string, role Role) ([]Appointment, error)
}

// Tx exposes the ledger operations available inside one atomic transaction.
type Tx interface {
	// Inventory ledger. Doses never go negative: a decrement below zero is
	// rejected with ErrOutOfStock, not clamped.
	DecrementDoses(ctx context.Context, vaccine string, n int) error
	IncrementDoses(ctx context.Context, vaccine string, n int) error
	// UpsertVaccine creates the vaccine with n doses, or tops up an
	// existing row. Catalog management, not part of booking.
	UpsertVaccine(ctx context.Context, vaccine string, n int) error

	// Availability set. ClaimSlot removes and returns the slot for day with
	// the lexically smallest caregiver username, so the caregiver booked is
	// the first one a prior schedule listing showed.
	ClaimSlot(ctx context.Context, day time.Time) (caregiver string, err error)
	ReleaseSlot(ctx context.Context, caregiver string, day time.Time) error
	AddSlot(ctx context.Context, caregiver string, day time.Time) error

	// Appointment ledger. NextAppointmentID draws from a storage-level
	// sequence; ids are unique against every id ever issued, including
	// ids of transactions that later rolled back.
	NextAppointmentID(ctx context.Context) (int64, error)
	InsertAppointment(ctx context.Context, appt Appointment) error
	GetAppointment(ctx context.Context, id int64) (Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}
