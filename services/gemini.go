package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	ModelName          = "gemini-2.5-flash"
	transcribeTimeout  = 15 * time.Second
	maxHistoryMessages = 40 // Turns beyond this are dropped from the prompt
)

// ChatMessage is one turn of a coaching conversation as the client holds it.
// The server never persists these; the client resends the full history with
// every request.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// GeminiService wraps the model endpoint. Conversation state lives entirely
// in the request, so the service itself is stateless and safe to share.
type GeminiService struct {
	genaiClient *genai.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}
	return &GeminiService{genaiClient: genaiClient}
}

// GenerateCoachTurn sends the full conversation history plus the system
// instruction and returns the raw model text. Callers decide whether that
// text is a chat reply or a structured report.
func (g *GeminiService) GenerateCoachTurn(ctx context.Context, systemInstruction string, history []ChatMessage) (string, error) {
	if g.genaiClient == nil {
		return "", fmt.Errorf("%w: genai client not initialized", ErrUpstream)
	}

	contents := buildConversationContents(history)
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Hello", genai.RoleUser))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(ctx, ModelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	response := result.Text()
	slog.Info("Generated coach turn",
		"history_messages", len(history),
		"response_length", len(response))
	return response, nil
}

// GenerateContent runs a one-shot prompt without conversation context.
func (g *GeminiService) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g.genaiClient == nil {
		return "", fmt.Errorf("%w: genai client not initialized", ErrUpstream)
	}

	result, err := g.genaiClient.Models.GenerateContent(ctx, ModelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return result.Text(), nil
}

func buildConversationContents(history []ChatMessage) []*genai.Content {
	// Trim the prompt to the most recent turns to avoid context bloat.
	startIdx := 0
	if len(history) > maxHistoryMessages {
		startIdx = len(history) - maxHistoryMessages
	}

	var contents []*genai.Content
	for _, msg := range history[startIdx:] {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if msg.Role == "assistant" {
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		} else {
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents
}

// TranscribeAudioWithPrompt transcribes an audio payload using a custom
// prompt. The 15 second cap keeps a hung model call from stalling a live
// voice session.
func (g *GeminiService) TranscribeAudioWithPrompt(ctx context.Context, audioData []byte, prompt string) (string, error) {
	slog.Info("Transcribing audio with Gemini", "size", len(audioData))

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	if g.genaiClient == nil {
		return "", fmt.Errorf("%w: genai client not initialized", ErrUpstream)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{
			InlineData: &genai.Blob{
				MIMEType: "audio/ogg",
				Data:     audioData,
			},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(ctx, ModelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	transcript := result.Text()
	slog.Info("Audio transcribed", "transcript_length", len(transcript))
	return transcript, nil
}
