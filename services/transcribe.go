package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TranscribeService adapts the speech-to-text backend for voice sessions.
// One fixed language per deployment, no internal retries; callers decide
// whether a failed chunk is worth resending.
type TranscribeService struct {
	gemini   *GeminiService
	language string
}

func NewTranscribeService(gemini *GeminiService, language string) *TranscribeService {
	if language == "" {
		language = "en-US"
	}
	return &TranscribeService{gemini: gemini, language: language}
}

// Transcribe converts one audio payload to plain text. Failures map onto
// the adapter's three-error contract.
func (s *TranscribeService) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidAudio)
	}
	if s.gemini == nil {
		return "", fmt.Errorf("%w: no speech backend configured", ErrServiceUnavailable)
	}

	prompt := fmt.Sprintf(
		"Transcribe this audio to text. The speaker is using the %s locale. Provide only the transcript, no additional commentary. If the audio is silent or unintelligible, respond with an empty string.",
		s.language)

	transcript, err := s.gemini.TranscribeAudioWithPrompt(ctx, audioData, prompt)
	if err != nil {
		return "", classifyTranscribeError(err)
	}
	return strings.TrimSpace(transcript), nil
}

func classifyTranscribeError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "permission"):
		slog.Error("Speech backend rejected credentials", "error", err)
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "unsupported"):
		return fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	default:
		slog.Error("Speech backend unavailable", "error", err)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}
