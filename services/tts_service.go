package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mansamusa/marketplace_backend/models"
)

const (
	MaxSpeechChars   = 4096
	DefaultTTSModel  = "tts-1"
	DefaultTTSVoice  = "alloy"
	ttsCacheTTL      = 24 * time.Hour
	maxSpeechBytes   = 16 * 1024 * 1024
	ttsClientTimeout = 30 * time.Second
)

// TTSService proxies read-aloud requests to an OpenAI-compatible speech API
type TTSService struct {
	baseURL  string
	apiKey   string
	model    string
	cache    Cache
	client   *http.Client
	// maxBytes caps the audio accepted from the API
	maxBytes int64
}

// NewTTSService returns a disabled service when apiKey is empty
func NewTTSService(baseURL, apiKey, model string, cache Cache) *TTSService {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = DefaultTTSModel
	}
	if apiKey == "" {
		log.Printf("WARNING: TTS_API_KEY is missing; text-to-speech is disabled")
	} else {
		log.Printf("TTS Service Configuration:")
		log.Printf("  Base URL: %s", baseURL)
		log.Printf("  Model: %s", model)
		log.Printf("  API Key: [CONFIGURED]")
	}
	return &TTSService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		cache:    cache,
		client:   &http.Client{Timeout: ttsClientTimeout},
		maxBytes: maxSpeechBytes,
	}
}

func (s *TTSService) Enabled() bool { return s.apiKey != "" }

func ttsCacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return "tts:" + hex.EncodeToString(sum[:])
}

// Speak returns MP3 audio for the text, served from cache when possible
func (s *TTSService) Speak(ctx context.Context, req models.SpeechRequest) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalid("text is required")
	}
	if len([]rune(text)) > MaxSpeechChars {
		return nil, invalid("text exceeds %d characters", MaxSpeechChars)
	}
	voice := req.Voice
	if voice == "" {
		voice = DefaultTTSVoice
	}

	key := ttsCacheKey(voice, text)
	if s.cache != nil {
		if audio, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return audio, nil
		}
	}

	audio, err := s.makeRequest(ctx, map[string]string{
		"model":           s.model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		logIfErr(s.cache.Set(ctx, key, audio, ttsCacheTTL), "Failed to cache speech audio")
	}
	return audio, nil
}

// makeRequest posts to the speech endpoint and returns the raw audio
func (s *TTSService) makeRequest(ctx context.Context, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/speech", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// one byte past the cap tells a full read from a cut one
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("TTS API error: status=%d body=%s", resp.StatusCode, truncate(string(body), 300))
		return nil, fmt.Errorf("tts API returned status %d", resp.StatusCode)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("tts audio exceeds %d bytes", s.maxBytes)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
