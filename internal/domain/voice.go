package domain

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

type VoiceSettings struct {
	Language string  `json:"language"`
	Gender   Gender  `json:"gender"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Language: "en-US",
		Gender:   GenderFemale,
		Rate:     0.9,
		Pitch:    1,
	}
}

// Validate checks the ranges accepted by speech synthesis engines.
func (s VoiceSettings) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(s.Language) == "" {
		verr.Add("language", "is required")
	}
	if s.Gender != GenderFemale && s.Gender != GenderMale {
		verr.Add("gender", "must be male or female")
	}
	if s.Rate < 0.1 || s.Rate > 10 {
		verr.Add("rate", "must be between 0.1 and 10")
	}
	if s.Pitch < 0 || s.Pitch > 2 {
		verr.Add("pitch", "must be between 0 and 2")
	}
	return verr.OrNil()
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedLanguages = []Language{
	{Code: "en-US", Name: "English"},
	{Code: "te-IN", Name: "తెలుగు"},
	{Code: "hi-IN", Name: "हिंदी"},
	{Code: "ta-IN", Name: "தமிழ்"},
	{Code: "kn-IN", Name: "ಕನ್ನಡ"},
	{Code: "ml-IN", Name: "മലയാളം"},
	{Code: "bn-IN", Name: "বাংলা"},
	{Code: "gu-IN", Name: "ગુજરાતી"},
	{Code: "pa-IN", Name: "ਪੰਜਾਬੀ"},
	{Code: "mr-IN", Name: "मराठी"},
	{Code: "es-ES", Name: "Español"},
	{Code: "fr-FR", Name: "Français"},
	{Code: "de-DE", Name: "Deutsch"},
	{Code: "it-IT", Name: "Italiano"},
	{Code: "pt-BR", Name: "Português"},
	{Code: "ru-RU", Name: "Русский"},
	{Code: "ja-JP", Name: "日本語"},
	{Code: "ko-KR", Name: "한국어"},
	{Code: "zh-CN", Name: "中文"},
	{Code: "ar-SA", Name: "العربية"},
	{Code: "tr-TR", Name: "Türkçe"},
	{Code: "th-TH", Name: "ไทย"},
	{Code: "vi-VN", Name: "Tiếng Việt"},
}

func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// Voice is a synthesis voice as reported by the client's speech engine.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// SelectVoice picks a voice for the language and gender. The second result is
// false when the engine default should be used.
func SelectVoice(voices []Voice, language string, gender Gender) (Voice, bool) {
	base := strings.ToLower(language)
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}

	for _, v := range voices {
		if matchesLanguage(v, base) && matchesGender(v, gender) {
			return v, true
		}
	}
	for _, v := range voices {
		if matchesLanguage(v, base) {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.Contains(v.Name, "Google") ||
			strings.Contains(v.Name, "Microsoft") ||
			strings.Contains(v.Name, "Enhanced") {
			return v, true
		}
	}
	return Voice{}, false
}

func matchesLanguage(v Voice, base string) bool {
	return base != "" && strings.Contains(strings.ToLower(v.Lang), base)
}

// Names that mention no gender count as female.
func matchesGender(v Voice, gender Gender) bool {
	name := strings.ToLower(v.Name)
	if gender == GenderMale {
		return (strings.Contains(name, "male") && !strings.Contains(name, "female")) ||
			(strings.Contains(name, "man") && !strings.Contains(name, "woman"))
	}
	return strings.Contains(name, "female") ||
		strings.Contains(name, "woman") ||
		!strings.Contains(name, "male")
}

type RecognitionErrorCode string

const (
	RecognitionNoSpeech     RecognitionErrorCode = "no-speech"
	RecognitionNotAllowed   RecognitionErrorCode = "not-allowed"
	RecognitionAudioCapture RecognitionErrorCode = "audio-capture"
	RecognitionNetwork      RecognitionErrorCode = "network"
	RecognitionUnknown      RecognitionErrorCode = "unknown"
)

const recognitionDefaultMessage = "Please try again or check your microphone permissions."

var recognitionMessages = map[RecognitionErrorCode]string{
	RecognitionNoSpeech:     "No speech detected. Please speak clearly.",
	RecognitionNotAllowed:   "Microphone permission denied. Please allow microphone access.",
	RecognitionAudioCapture: "Microphone not accessible. Please check permissions.",
	RecognitionNetwork:      "Network error. Please check your internet connection.",
}

var (
	ErrNoSpeech       = errors.New("no speech detected")
	ErrMicUnavailable = errors.New("microphone unavailable")
)

// RecognitionError is a speech recognition failure mapped onto a fixed taxonomy.
type RecognitionError struct {
	Code RecognitionErrorCode
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Message is the user-facing description of the failure.
func (e *RecognitionError) Message() string {
	return e.Code.Message()
}

func (c RecognitionErrorCode) Message() string {
	if msg, ok := recognitionMessages[c]; ok {
		return msg
	}
	return recognitionDefaultMessage
}

// ParseRecognitionErrorCode normalizes a browser error code. Unknown codes map to RecognitionUnknown.
func ParseRecognitionErrorCode(s string) RecognitionErrorCode {
	code := RecognitionErrorCode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := recognitionMessages[code]; ok {
		return code
	}
	return RecognitionUnknown
}

// ClassifyRecognitionError maps a transcription or capture failure onto the taxonomy.
func ClassifyRecognitionError(err error) *RecognitionError {
	if err == nil {
		return nil
	}
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr
	}

	code := RecognitionUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, ErrNoSpeech):
		code = RecognitionNoSpeech
	case errors.Is(err, os.ErrPermission):
		code = RecognitionNotAllowed
	case errors.Is(err, ErrMicUnavailable):
		code = RecognitionAudioCapture
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		code = RecognitionNetwork
	}
	return &RecognitionError{Code: code, Err: err}
}
