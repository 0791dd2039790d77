package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/vaccine-scheduler/internal/account"
	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
	"github.com/clinicdesk/vaccine-scheduler/internal/session"
)

func registerHandler(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		a, err := accounts.Register(r.Context(), req.Username, req.Password, scheduling.Role(req.Role))
		if err != nil {
			switch {
			case errors.Is(err, account.ErrUsernameTaken):
				writeError(w, http.StatusConflict, "username_taken", err.Error())
			default:
				writeError(w, http.StatusUnprocessableEntity, "invalid_account", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			Username: a.Username,
			Role:     string(a.Role),
		})
	}
}

func loginHandler(accounts *account.Service, sessions session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		a, err := accounts.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, account.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		sess, err := sessions.Create(r.Context(), a.Username, a.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, LoginResponse{
			Token:    sess.Token,
			Identity: sess.Identity,
			Role:     string(sess.Role),
		})
	}
}

func logoutHandler(sessions session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_session", "not logged in")
			return
		}
		if err := sessions.Delete(r.Context(), sess.Token); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

func scheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := scheduling.ParseDay(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		sched, err := svc.Schedule(r.Context(), day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := ScheduleResponse{
			Date:       scheduling.FormatDay(sched.Day),
			Caregivers: sched.Caregivers,
			Vaccines:   make([]VaccineResponse, 0, len(sched.Vaccines)),
		}
		if resp.Caregivers == nil {
			resp.Caregivers = []string{}
		}
		for _, v := range sched.Vaccines {
			resp.Vaccines = append(resp.Vaccines, VaccineResponse{Name: v.Name, Doses: v.Doses})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok || sess.Role != scheduling.RolePatient {
			writeError(w, http.StatusForbidden, "patients_only", "please log in as a patient")
			return
		}

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		day, err := scheduling.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		conf, err := svc.Book(r.Context(), sess.Identity, day, req.Vaccine)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookResponse{
			AppointmentID: conf.AppointmentID,
			Caregiver:     conf.Caregiver,
		})
	}
}

func cancelHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_session", "please log in")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		if err := svc.Cancel(r.Context(), sess.Identity, sess.Role, id); err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusNoContent, nil)
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_session", "please log in")
			return
		}

		appts, err := svc.ListAppointments(r.Context(), sess.Identity, sess.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, AppointmentResponse{
				ID:        a.ID,
				Patient:   a.Patient,
				Caregiver: a.Caregiver,
				Vaccine:   a.Vaccine,
				Date:      scheduling.FormatDay(a.Day),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func uploadAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok || sess.Role != scheduling.RoleCaregiver {
			writeError(w, http.StatusForbidden, "caregivers_only", "please log in as a caregiver")
			return
		}

		var req UploadAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		day, err := scheduling.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		if err := svc.UploadAvailability(r.Context(), sess.Identity, day); err != nil {
			if errors.Is(err, scheduling.ErrSlotExists) {
				writeError(w, http.StatusConflict, "slot_exists", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, nil)
	}
}

func addDosesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok || sess.Role != scheduling.RoleCaregiver {
			writeError(w, http.StatusForbidden, "caregivers_only", "please log in as a caregiver")
			return
		}

		var req AddDosesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.AddDoses(r.Context(), chi.URLParam(r, "name"), req.Doses); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_doses", err.Error())
			return
		}

		writeJSON(w, http.StatusNoContent, nil)
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrUnknownVaccine):
		writeError(w, http.StatusNotFound, "unknown_vaccine", err.Error())
	case errors.Is(err, scheduling.ErrOutOfStock):
		writeError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, scheduling.ErrNoSuchSlot):
		writeError(w, http.StatusConflict, "no_caregiver_available", err.Error())
	case errors.Is(err, scheduling.ErrTxConflict):
		writeError(w, http.StatusConflict, "transaction_conflict", "booking conflicted with another request, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, scheduling.ErrTxConflict):
		writeError(w, http.StatusConflict, "transaction_conflict", "cancellation conflicted with another request, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
