package scheduling_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

func TestMemoryStore_ClaimSlotPicksFirstCaregiver(t *testing.T) {
	store := scheduling.NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		for _, caregiver := range []string{"carol", "alice", "bob"} {
			if err := tx.AddSlot(ctx, caregiver, day1); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var claimed []string
	for i := 0; i < 3; i++ {
		err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
			caregiver, err := tx.ClaimSlot(ctx, day1)
			if err != nil {
				return err
			}
			claimed = append(claimed, caregiver)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, claimed)

	err = store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		_, err := tx.ClaimSlot(ctx, day1)
		return err
	})
	assert.ErrorIs(t, err, scheduling.ErrNoSuchSlot)
}

func TestMemoryStore_DecrementNeverGoesNegative(t *testing.T) {
	store := scheduling.NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		return tx.UpsertVaccine(ctx, "Moderna", 2)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		return tx.DecrementDoses(ctx, "Moderna", 3)
	})
	assert.ErrorIs(t, err, scheduling.ErrOutOfStock)

	// The failed decrement must not clamp the count.
	vaccines, err := store.ListVaccines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []scheduling.VaccineStock{{Name: "Moderna", Doses: 2}}, vaccines)

	err = store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		return tx.DecrementDoses(ctx, "Nuvaxovid", 1)
	})
	assert.ErrorIs(t, err, scheduling.ErrUnknownVaccine)
}

func TestMemoryStore_AddSlotDuplicate(t *testing.T) {
	store := scheduling.NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		return tx.AddSlot(ctx, "alice", day1)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		return tx.AddSlot(ctx, "alice", day1)
	})
	assert.ErrorIs(t, err, scheduling.ErrSlotExists)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	boom := assert.AnError
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.DecrementDoses(ctx, "Pfizer", 1); err != nil {
			return err
		}
		if _, err := tx.ClaimSlot(ctx, day1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	vaccines, err := store.ListVaccines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []scheduling.VaccineStock{{Name: "Pfizer", Doses: 1}}, vaccines)

	caregivers, err := store.ListAvailableCaregivers(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, caregivers)
}

func TestMemoryStore_IDsNotReusedAfterRollback(t *testing.T) {
	store := scheduling.NewMemoryStore()
	ctx := context.Background()

	var first int64
	err := store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		var err error
		first, err = tx.NextAppointmentID(ctx)
		if err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), first)

	// Sequence semantics: the aborted transaction burns its id.
	var second int64
	err = store.WithTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		var err error
		second, err = tx.NextAppointmentID(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestMemoryStore_GetAppointmentNotFound(t *testing.T) {
	store := scheduling.NewMemoryStore()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx scheduling.Tx) error {
		_, err := tx.GetAppointment(ctx, 7)
		return err
	})
	assert.ErrorIs(t, err, scheduling.ErrAppointmentNotFound)
}
