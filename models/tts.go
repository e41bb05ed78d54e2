package models

// SpeechRequest is the body of POST /api/tts
type SpeechRequest struct {
	Text  string `json:"text" validate:"required,max=4096"`
	Voice string `json:"voice,omitempty" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
}
