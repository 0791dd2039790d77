package scheduling

import "time"

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCaregiver
}

// DateFormat is the wire and storage format for appointment days.
const DateFormat = "2006-01-02"

type VaccineStock struct {
	Name  string
	Doses int
}

type AvailabilitySlot struct {
	Caregiver string
	Day       time.Time
}

type Appointment struct {
	ID        int64
	Patient   string
	Caregiver string
	Vaccine   string
	Day       time.Time
}

// BookingConfirmation is returned to the patient after a successful booking.
type BookingConfirmation struct {
	AppointmentID int64
	Caregiver     string
}

// DaySchedule is the read-only projection shown before booking: caregivers
// offering the day (ascending by username, matching claim order) and the
// vaccine catalog with remaining doses.
type DaySchedule struct {
	Day        time.Time
	Caregivers []string
	Vaccines   []VaccineStock
}

// NormalizeDay truncates t to a calendar date in UTC.
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(DateFormat)
}
