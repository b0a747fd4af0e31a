package recognizer

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
)

// HTTPService posts captured audio to a whisper.cpp-style inference
// endpoint: multipart WAV in, JSON {"text": ...} out.
type HTTPService struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewHTTPService(apiURL, apiKey string) *HTTPService {
	return &HTTPService{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (s *HTTPService) Transcribe(ctx context.Context, wavData []byte, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wavData); err != nil {
		return "", err
	}
	writer.WriteField("response_format", "json")
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("speech API error %d: %s", resp.StatusCode, string(respBody))
	}

	var tResp transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tResp); err != nil {
		return "", fmt.Errorf("speech response parse error: %w", err)
	}
	return strings.TrimSpace(tResp.Text), nil
}
