package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type TTSController struct {
	tts *services.TTSService
}

func NewTTSController(tts *services.TTSService) *TTSController {
	return &TTSController{tts: tts}
}

// Speak returns MP3 audio for the given text
func (tc *TTSController) Speak(c echo.Context) error {
	var req models.SpeechRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	audio, err := tc.tts.Speak(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}
