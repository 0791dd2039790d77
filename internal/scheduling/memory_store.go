package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests, the load simulator and
// dev mode without Postgres. A single mutex serializes transactions, so
// every transaction observes a consistent snapshot; rollback restores the
// state captured at transaction start.
type MemoryStore struct {
	mu           sync.Mutex
	vaccines     map[string]int
	slots        map[string]map[string]struct{} // day -> caregivers
	appointments map[int64]Appointment
	nextID       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vaccines:     make(map[string]int),
		slots:        make(map[string]map[string]struct{}),
		appointments: make(map[int64]Appointment),
	}
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx, &memTx{store: m}); err != nil {
		// The id counter is deliberately not restored: like a database
		// sequence, it never reissues a value after a rollback.
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	vaccines     map[string]int
	slots        map[string]map[string]struct{}
	appointments map[int64]Appointment
}

func (m *MemoryStore) snapshot() memorySnapshot {
	vaccines := make(map[string]int, len(m.vaccines))
	for k, v := range m.vaccines {
		vaccines[k] = v
	}
	slots := make(map[string]map[string]struct{}, len(m.slots))
	for day, caregivers := range m.slots {
		set := make(map[string]struct{}, len(caregivers))
		for c := range caregivers {
			set[c] = struct{}{}
		}
		slots[day] = set
	}
	appointments := make(map[int64]Appointment, len(m.appointments))
	for id, a := range m.appointments {
		appointments[id] = a
	}
	return memorySnapshot{vaccines: vaccines, slots: slots, appointments: appointments}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.vaccines = s.vaccines
	m.slots = s.slots
	m.appointments = s.appointments
}

func (m *MemoryStore) ListAvailableCaregivers(ctx context.Context, day time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	caregivers := make([]string, 0, len(m.slots[FormatDay(day)]))
	for c := range m.slots[FormatDay(day)] {
		caregivers = append(caregivers, c)
	}
	sort.Strings(caregivers)
	return caregivers, nil
}

func (m *MemoryStore) ListVaccines(ctx context.Context) ([]VaccineStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]VaccineStock, 0, len(m.vaccines))
	for name, doses := range m.vaccines {
		out = append(out, VaccineStock{Name: name, Doses: doses})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) ListAppointmentsFor(ctx context.Context, identity string, role Role) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if (role == RolePatient && a.Patient == identity) ||
			(role == RoleCaregiver && a.Caregiver == identity) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memTx mutates the store directly; WithTx holds the lock and restores the
// snapshot if the transaction body fails.
type memTx struct {
	store *MemoryStore
}

func (t *memTx) DecrementDoses(ctx context.Context, vaccine string, n int) error {
	doses, ok := t.store.vaccines[vaccine]
	if !ok {
		return ErrUnknownVaccine
	}
	if doses < n {
		return ErrOutOfStock
	}
	t.store.vaccines[vaccine] = doses - n
	return nil
}

func (t *memTx) IncrementDoses(ctx context.Context, vaccine string, n int) error {
	if _, ok := t.store.vaccines[vaccine]; !ok {
		return ErrUnknownVaccine
	}
	t.store.vaccines[vaccine] += n
	return nil
}

func (t *memTx) UpsertVaccine(ctx context.Context, vaccine string, n int) error {
	t.store.vaccines[vaccine] += n
	return nil
}

func (t *memTx) ClaimSlot(ctx context.Context, day time.Time) (string, error) {
	key := FormatDay(day)
	caregivers := t.store.slots[key]
	if len(caregivers) == 0 {
		return "", ErrNoSuchSlot
	}

	min := ""
	for c := range caregivers {
		if min == "" || c < min {
			min = c
		}
	}
	delete(caregivers, min)
	if len(caregivers) == 0 {
		delete(t.store.slots, key)
	}
	return min, nil
}

func (t *memTx) ReleaseSlot(ctx context.Context, caregiver string, day time.Time) error {
	return t.AddSlot(ctx, caregiver, day)
}

func (t *memTx) AddSlot(ctx context.Context, caregiver string, day time.Time) error {
	key := FormatDay(day)
	if _, ok := t.store.slots[key][caregiver]; ok {
		return ErrSlotExists
	}
	if t.store.slots[key] == nil {
		t.store.slots[key] = make(map[string]struct{})
	}
	t.store.slots[key][caregiver] = struct{}{}
	return nil
}

func (t *memTx) NextAppointmentID(ctx context.Context) (int64, error) {
	t.store.nextID++
	return t.store.nextID, nil
}

func (t *memTx) InsertAppointment(ctx context.Context, appt Appointment) error {
	if _, ok := t.store.appointments[appt.ID]; ok {
		return ErrDuplicateID
	}
	t.store.appointments[appt.ID] = appt
	return nil
}

func (t *memTx) GetAppointment(ctx context.Context, id int64) (Appointment, error) {
	appt, ok := t.store.appointments[id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

func (t *memTx) DeleteAppointment(ctx context.Context, id int64) error {
	if _, ok := t.store.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(t.store.appointments, id)
	return nil
}
