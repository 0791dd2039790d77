package api

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

type BookRequest struct {
	Date    string `json:"date"`
	Vaccine string `json:"vaccine"`
}

type BookResponse struct {
	AppointmentID int64  `json:"appointment_id"`
	Caregiver     string `json:"caregiver"`
}

type AppointmentResponse struct {
	ID        int64  `json:"id"`
	Patient   string `json:"patient"`
	Caregiver string `json:"caregiver"`
	Vaccine   string `json:"vaccine"`
	Date      string `json:"date"`
}

type VaccineResponse struct {
	Name  string `json:"name"`
	Doses int    `json:"doses"`
}

type ScheduleResponse struct {
	Date       string            `json:"date"`
	Caregivers []string          `json:"caregivers"`
	Vaccines   []VaccineResponse `json:"vaccines"`
}

type UploadAvailabilityRequest struct {
	Date string `json:"date"`
}

type AddDosesRequest struct {
	Doses int `json:"doses"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
