package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks a vision model for a faithful transcription. Field
// interpretation is deliberately left to the extraction engine.
const transcribePrompt = `You are transcribing a scanned invoice document. Read every piece of text in the image and reproduce it exactly as plain text.

Rules:
- Preserve the reading order and keep each visual line of the document on its own line
- Do not interpret, summarize, translate or reformat anything
- Do not add labels, commentary or markdown code blocks
- If a word is unreadable, reproduce your best guess for its characters`

// Gemini implements the Recognizer interface using Google Gemini vision
// models. Gemini reports no per-word confidence, so recognition confidence
// is estimated from the transcription content.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini recognizer.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// RecognizeImage transcribes a PNG image through Gemini.
func (g *Gemini) RecognizeImage(ctx context.Context, pngData []byte) (PageText, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return PageText{}, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return PageText{}, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := cleanTranscript(responseText.String())
	return PageText{Text: text, Confidence: estimateTextConfidence(text)}, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
