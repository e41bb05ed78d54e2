package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansamusa/marketplace_backend/models"
)

func TestTTSService_Speak(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["input"] == "fail" {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "mp3", body["response_format"])
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3:" + body["voice"] + ":" + body["input"]))
	}))
	defer server.Close()

	ctx := context.Background()
	svc := NewTTSService(server.URL+"/", "sk-test", "", newFakeCache())

	audio, err := svc.Speak(ctx, models.SpeechRequest{Text: "  Welcome to Sankofa Books  "})
	require.NoError(t, err)
	assert.Equal(t, "ID3:alloy:Welcome to Sankofa Books", string(audio))

	again, err := svc.Speak(ctx, models.SpeechRequest{Text: "Welcome to Sankofa Books"})
	require.NoError(t, err)
	assert.Equal(t, audio, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second request is served from cache")

	other, err := svc.Speak(ctx, models.SpeechRequest{Text: "Welcome to Sankofa Books", Voice: "nova"})
	require.NoError(t, err)
	assert.Equal(t, "ID3:nova:Welcome to Sankofa Books", string(other))

	_, err = svc.Speak(ctx, models.SpeechRequest{Text: "fail"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Speak(ctx, models.SpeechRequest{Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Speak(ctx, models.SpeechRequest{Text: strings.Repeat("a", MaxSpeechChars+1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTTSService_OversizedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3:0123456789"))
	}))
	defer server.Close()

	ctx := context.Background()
	cache := newFakeCache()
	svc := NewTTSService(server.URL, "sk-test", "", cache)

	svc.maxBytes = 8
	_, err := svc.Speak(ctx, models.SpeechRequest{Text: "Harlem Heritage Tours"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
	_, cached, _ := cache.Get(ctx, ttsCacheKey(DefaultTTSVoice, "Harlem Heritage Tours"))
	assert.False(t, cached, "cut audio is never cached")

	svc.maxBytes = int64(len("ID3:0123456789"))
	audio, err := svc.Speak(ctx, models.SpeechRequest{Text: "Harlem Heritage Tours"})
	require.NoError(t, err)
	assert.Equal(t, "ID3:0123456789", string(audio))
}

func TestTTSService_Disabled(t *testing.T) {
	svc := NewTTSService("", "", "", nil)
	assert.False(t, svc.Enabled())
	_, err := svc.Speak(context.Background(), models.SpeechRequest{Text: "hello"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
