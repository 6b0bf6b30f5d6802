package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"voice-home/internal/domain"
)

type createDeviceRequest struct {
	Name     string `json:"name"`
	Category string `json:"type"`
	Room     string `json:"room"`
}

type levelRequest struct {
	Value *int `json:"value"`
}

type powerRequest struct {
	On bool `json:"on"`
}

// listDevices narrows the list with ?match=<identifier> when given.
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("match")); q != "" {
		devices := s.devices.Match(q)
		if devices == nil {
			devices = []domain.Device{}
		}
		JSON(w, http.StatusOK, devices)
		return
	}
	JSON(w, http.StatusOK, s.devices.List())
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		category = domain.Category(req.Category)
	}
	d, err := s.devices.Create(req.Name, category, req.Room)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, d)
}

func (s *Server) setAllDevices(w http.ResponseWriter, r *http.Request) {
	var req powerRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	JSON(w, http.StatusOK, s.devices.SetAll(req.On))
}

func (s *Server) toggleDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.devices.Toggle(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "device not found")
		return
	}
	JSON(w, http.StatusOK, d)
}

func (s *Server) setDeviceLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decode(r, &req); err != nil || req.Value == nil {
		Error(w, http.StatusBadRequest, "value is required")
		return
	}

	id := chi.URLParam(r, "id")
	current, ok := s.devices.Get(id)
	if !ok {
		Error(w, http.StatusNotFound, "device not found")
		return
	}
	if _, hasLevel := current.Category.Level(); !hasLevel {
		Error(w, http.StatusConflict, current.Category.DisplayName()+" has no adjustable level")
		return
	}

	d, ok := s.devices.SetLevel(id, *req.Value)
	if !ok {
		Error(w, http.StatusNotFound, "device not found")
		return
	}
	JSON(w, http.StatusOK, d)
}

func (s *Server) removeDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.devices.Remove(chi.URLParam(r, "id")); !ok {
		Error(w, http.StatusNotFound, "device not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
