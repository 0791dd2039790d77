package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres-backed Store. Transactions run at SERIALIZABLE
// isolation; serialization failures surface as ErrTxConflict so the
// coordinator can retry.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// mapPgError translates SQLSTATE codes into ledger sentinels. 40001 and
// 40P01 are the serialization/deadlock failures the coordinator retries.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return ErrTxConflict
		case pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_pkey":
			return ErrDuplicateID
		case pgErr.Code == "23505" && pgErr.ConstraintName == "availabilities_pkey":
			return ErrSlotExists
		}
	}
	return err
}

func (s *PgStore) ListAvailableCaregivers(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT caregiver
		FROM availabilities
		WHERE day = $1
		ORDER BY caregiver ASC
	`, NormalizeDay(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PgStore) ListVaccines(ctx context.Context) ([]VaccineStock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, doses
		FROM vaccines
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VaccineStock
	for rows.Next() {
		var v VaccineStock
		if err := rows.Scan(&v.Name, &v.Doses); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PgStore) ListAppointmentsFor(ctx context.Context, identity string, role Role) ([]Appointment, error) {
	column := "patient"
	if role == RoleCaregiver {
		column = "caregiver"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, patient, caregiver, vaccine, day
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY id ASC
	`, identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.Patient,
		&a.Caregiver,
		&a.Vaccine,
		&a.Day,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Day = NormalizeDay(a.Day)
	return &a, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) DecrementDoses(ctx context.Context, vaccine string, n int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE vaccines
		SET doses = doses - $2
		WHERE name = $1
		  AND doses >= $2
	`, vaccine, n)
	if err != nil {
		return fmt.Errorf("decrement doses: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM vaccines WHERE name = $1)
	`, vaccine).Scan(&exists); err != nil {
		return fmt.Errorf("check vaccine: %w", err)
	}
	if !exists {
		return ErrUnknownVaccine
	}
	return ErrOutOfStock
}

func (t *pgTx) IncrementDoses(ctx context.Context, vaccine string, n int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE vaccines
		SET doses = doses + $2
		WHERE name = $1
	`, vaccine, n)
	if err != nil {
		return fmt.Errorf("increment doses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownVaccine
	}
	return nil
}

func (t *pgTx) UpsertVaccine(ctx context.Context, vaccine string, n int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO vaccines (name, doses)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET doses = vaccines.doses + EXCLUDED.doses
	`, vaccine, n)
	if err != nil {
		return fmt.Errorf("upsert vaccine: %w", err)
	}
	return nil
}

func (t *pgTx) ClaimSlot(ctx context.Context, day time.Time) (string, error) {
	var caregiver string
	err := t.tx.QueryRow(ctx, `
		DELETE FROM availabilities
		WHERE day = $1
		  AND caregiver = (
			SELECT caregiver
			FROM availabilities
			WHERE day = $1
			ORDER BY caregiver ASC
			LIMIT 1
		  )
		RETURNING caregiver
	`, day).Scan(&caregiver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoSuchSlot
		}
		return "", fmt.Errorf("claim slot: %w", err)
	}
	return caregiver, nil
}

func (t *pgTx) ReleaseSlot(ctx context.Context, caregiver string, day time.Time) error {
	return t.AddSlot(ctx, caregiver, day)
}

func (t *pgTx) AddSlot(ctx context.Context, caregiver string, day time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO availabilities (caregiver, day)
		VALUES ($1, $2)
	`, caregiver, day)
	if err != nil {
		// Surface the duplicate-pair sentinel here so callers inside the
		// transaction see it before commit.
		return mapPgError(err)
	}
	return nil
}

func (t *pgTx) NextAppointmentID(ctx context.Context) (int64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('appointment_ids')`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments (id, patient, caregiver, vaccine, day)
		VALUES ($1, $2, $3, $4, $5)
	`, appt.ID, appt.Patient, appt.Caregiver, appt.Vaccine, appt.Day)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (t *pgTx) GetAppointment(ctx context.Context, id int64) (Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, patient, caregiver, vaccine, day
		FROM appointments
		WHERE id = $1
	`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		return Appointment{}, err
	}
	return *appt, nil
}

func (t *pgTx) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
