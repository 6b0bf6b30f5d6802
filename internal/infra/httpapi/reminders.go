package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createReminderRequest struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.reminders.List())
}

func (s *Server) nextReminder(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.reminders.Next())
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rem, err := s.reminders.Create(req.Text, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, rem)
}

func (s *Server) toggleReminder(w http.ResponseWriter, r *http.Request) {
	rem, ok, err := s.reminders.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("toggling reminder", "error", err)
		writeError(w, err)
		return
	}
	if !ok {
		Error(w, http.StatusNotFound, "reminder not found")
		return
	}
	JSON(w, http.StatusOK, rem)
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	if !s.reminders.Delete(chi.URLParam(r, "id")) {
		Error(w, http.StatusNotFound, "reminder not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
