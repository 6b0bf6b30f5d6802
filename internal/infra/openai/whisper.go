package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice-home/internal/domain"
	"voice-home/internal/infra"
)

type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "https://api.openai.com/v1")
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   whisperLanguage(language),
	}
}

// whisperLanguage reduces a BCP 47 tag such as "en-US" to the ISO 639-1 code
// Whisper expects.
func whisperLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe returns domain.ErrNoSpeech when the audio contains no words.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var result transcriptionResponse

	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "audio.wav")
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating form file: %w", err))
		}

		if _, err = part.Write(audio); err != nil {
			return infra.Permanent(fmt.Errorf("writing audio: %w", err))
		}

		if err = writer.WriteField("model", "whisper-1"); err != nil {
			return infra.Permanent(fmt.Errorf("writing model field: %w", err))
		}

		if c.language != "" {
			if err = writer.WriteField("language", c.language); err != nil {
				return infra.Permanent(fmt.Errorf("writing language field: %w", err))
			}
		}

		if err = writer.Close(); err != nil {
			return infra.Permanent(fmt.Errorf("closing writer: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return infra.StatusError("whisper", resp.StatusCode, respBody)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response: %w", err))
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", domain.ErrNoSpeech
	}
	return text, nil
}
