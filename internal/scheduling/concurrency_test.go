package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

func TestConcurrentBooking_NoOversell(t *testing.T) {
	const (
		doses      = 5
		caregivers = 20
		patients   = 20
	)

	store := scheduling.NewMemoryStore()
	ctx := context.Background()
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.UpsertVaccine(ctx, "Pfizer", doses); err != nil {
			return err
		}
		for c := 0; c < caregivers; c++ {
			if err := tx.AddSlot(ctx, fmt.Sprintf("caregiver-%02d", c), day1); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	svc := scheduling.NewService(store, 3)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		booked     int
		outOfStock int
	)
	for p := 0; p < patients; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, err := svc.Book(ctx, fmt.Sprintf("patient-%02d", p), day1, "Pfizer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, scheduling.ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected booking error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, doses, booked)
	assert.Equal(t, patients-doses, outOfStock)

	vaccines, err := store.ListVaccines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []scheduling.VaccineStock{{Name: "Pfizer", Doses: 0}}, vaccines)
}

func TestConcurrentBooking_NoDoubleBookedSlot(t *testing.T) {
	const patients = 10

	store := scheduling.NewMemoryStore()
	ctx := context.Background()
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.UpsertVaccine(ctx, "Pfizer", patients); err != nil {
			return err
		}
		return tx.AddSlot(ctx, "alice", day1)
	})
	require.NoError(t, err)

	svc := scheduling.NewService(store, 3)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		booked int
		noSlot int
	)
	for p := 0; p < patients; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, err := svc.Book(ctx, fmt.Sprintf("patient-%02d", p), day1, "Pfizer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, scheduling.ErrNoSuchSlot):
				noSlot++
			default:
				t.Errorf("unexpected booking error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, patients-1, noSlot)

	// Losers must have rolled their dose decrement back.
	vaccines, err := store.ListVaccines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []scheduling.VaccineStock{{Name: "Pfizer", Doses: patients - 1}}, vaccines)
}

func TestConcurrentBooking_UniqueAppointmentIDs(t *testing.T) {
	const (
		days       = 4
		caregivers = 8
		patients   = days * caregivers
	)

	store := scheduling.NewMemoryStore()
	ctx := context.Background()
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.UpsertVaccine(ctx, "Moderna", patients); err != nil {
			return err
		}
		for d := 0; d < days; d++ {
			for c := 0; c < caregivers; c++ {
				if err := tx.AddSlot(ctx, fmt.Sprintf("caregiver-%02d", c), day1.AddDate(0, 0, d)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)

	svc := scheduling.NewService(store, 3)

	ids := make(chan int64, patients)
	var wg sync.WaitGroup
	for p := 0; p < patients; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			day := day1.AddDate(0, 0, p%days)
			conf, err := svc.Book(ctx, fmt.Sprintf("patient-%02d", p), day, "Moderna")
			if err != nil {
				t.Errorf("book: %v", err)
				return
			}
			ids <- conf.AppointmentID
		}(p)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "appointment id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, patients)
}

func TestConcurrentBookAndCancel_LedgersStayConsistent(t *testing.T) {
	const (
		doses   = 30
		workers = 16
		rounds  = 25
	)

	store := scheduling.NewMemoryStore()
	ctx := context.Background()
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.UpsertVaccine(ctx, "Janssen", doses); err != nil {
			return err
		}
		for d := 0; d < 7; d++ {
			for c := 0; c < 6; c++ {
				if err := tx.AddSlot(ctx, fmt.Sprintf("caregiver-%02d", c), day1.AddDate(0, 0, d)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)

	svc := scheduling.NewService(store, 3)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			patient := fmt.Sprintf("patient-%02d", w)
			for r := 0; r < rounds; r++ {
				day := day1.AddDate(0, 0, (w+r)%7)
				conf, err := svc.Book(ctx, patient, day, "Janssen")
				if err != nil {
					continue
				}
				if r%2 == 0 {
					if err := svc.Cancel(ctx, patient, scheduling.RolePatient, conf.AppointmentID); err != nil {
						t.Errorf("cancel %d: %v", conf.AppointmentID, err)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	// Remaining doses plus outstanding appointments must equal the initial
	// stock, and no slot may be both free and booked for the same day.
	vaccines, err := store.ListVaccines(ctx)
	require.NoError(t, err)
	require.Len(t, vaccines, 1)

	outstanding := 0
	bookedSlots := make(map[string]bool)
	for w := 0; w < workers; w++ {
		appts, err := store.ListAppointmentsFor(ctx, fmt.Sprintf("patient-%02d", w), scheduling.RolePatient)
		require.NoError(t, err)
		outstanding += len(appts)
		for _, a := range appts {
			key := a.Caregiver + "/" + a.Day.Format(time.DateOnly)
			assert.False(t, bookedSlots[key], "slot %s booked twice", key)
			bookedSlots[key] = true

			free, err := store.ListAvailableCaregivers(ctx, a.Day)
			require.NoError(t, err)
			assert.NotContains(t, free, a.Caregiver, "caregiver both free and booked on %s", a.Day)
		}
	}
	assert.Equal(t, doses, vaccines[0].Doses+outstanding)
	assert.GreaterOrEqual(t, vaccines[0].Doses, 0)
}
