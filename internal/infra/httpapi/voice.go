package httpapi

import (
	"net/http"

	"voice-home/internal/domain"
)

type selectVoiceRequest struct {
	Voices   []domain.Voice `json:"voices"`
	Language string         `json:"language"`
	Gender   domain.Gender  `json:"gender"`
}

type selectVoiceResponse struct {
	Voice *domain.Voice `json:"voice"`
}

func (s *Server) getVoiceSettings(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.assistant.VoiceSettings())
}

func (s *Server) updateVoiceSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.VoiceSettings
	if err := decode(r, &settings); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.assistant.UpdateVoiceSettings(settings); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, s.assistant.VoiceSettings())
}

func (s *Server) listLanguages(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, domain.SupportedLanguages())
}

// selectVoice picks from the voices the browser reports. Language and gender
// default to the current settings; a null voice means the engine default.
func (s *Server) selectVoice(w http.ResponseWriter, r *http.Request) {
	var req selectVoiceRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settings := s.assistant.VoiceSettings()
	if req.Language == "" {
		req.Language = settings.Language
	}
	if req.Gender == "" {
		req.Gender = settings.Gender
	}

	var resp selectVoiceResponse
	if v, ok := domain.SelectVoice(req.Voices, req.Language, req.Gender); ok {
		resp.Voice = &v
	}
	JSON(w, http.StatusOK, resp)
}
