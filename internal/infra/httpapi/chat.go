package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"voice-home/internal/application"
	"voice-home/internal/domain"
)

const maxAudioBody = 10 * 1024 * 1024

type chatResponse struct {
	Handled  bool           `json:"handled"`
	Action   domain.Action  `json:"action,omitempty"`
	Response string         `json:"response"`
	Message  domain.Message `json:"message"`
}

type recognitionRequest struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

type recognitionFailure struct {
	Error   string                      `json:"error"`
	Code    domain.RecognitionErrorCode `json:"code"`
	Message string                      `json:"message"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var in application.Input
	if err := decode(r, &in); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.assistant.HandleText(r.Context(), in)
	s.writeReply(w, reply, err)
}

func (s *Server) resetConversation(w http.ResponseWriter, r *http.Request) {
	s.assistant.ResetConversation()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recognition(w http.ResponseWriter, r *http.Request) {
	var req recognitionRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.assistant.HandleRecognition(r.Context(), req.Transcript, req.Error)
	s.writeReply(w, reply, err)
}

func (s *Server) audio(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBody))
	if err != nil {
		s.logger.Error("reading audio body", "error", err)
		Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	reply, err := s.assistant.HandleAudio(r.Context(), data)
	s.writeReply(w, reply, err)
}

func (s *Server) writeReply(w http.ResponseWriter, reply application.Reply, err error) {
	var rerr *domain.RecognitionError
	switch {
	case err == nil:
		JSON(w, http.StatusOK, chatResponse{
			Handled:  reply.Handled,
			Action:   reply.Action,
			Response: reply.Message.Text,
			Message:  reply.Message,
		})
	case errors.As(err, &rerr):
		JSON(w, http.StatusUnprocessableEntity, recognitionFailure{
			Error:   "recognition failed",
			Code:    rerr.Code,
			Message: rerr.Message(),
		})
	case errors.Is(err, application.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "text or attachment required")
	default:
		s.logger.Error("handling input", "error", err)
		writeError(w, err)
	}
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	msgs, err := s.assistant.Messages(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing messages", "error", err)
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	JSON(w, http.StatusOK, msgs)
}
