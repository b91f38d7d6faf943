package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"schediora-backend/internal/models"
)

// FallbackResponse is returned whenever the generation backend is
// unreachable or misbehaves. The normalizer turns it into a one-step plan,
// so the pipeline never propagates generator failures.
const FallbackResponse = "AI generation unavailable, fallback response."

const generateTimeout = 30 * time.Second

type GeneratorService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

func NewGeneratorService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*GeneratorService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeneratorService{
		client:   client,
		model:    model,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeneratorService) Close() {
	s.client.Close()
}

func (s *GeneratorService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeneratorService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeneratorService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, models.UserUpdatesChannel(userID), string(data))
}

// GeneratePlan asks the model for a weekly study plan as JSON. The return
// value is a raw string with no schema guarantee; callers must normalize
// it. Failures and timeouts degrade to FallbackResponse instead of an
// error.
func (s *GeneratorService) GeneratePlan(ctx context.Context, goal, topic string) string {
	if err := s.acquireRate(ctx); err != nil {
		log.Printf("Gemini rate slot unavailable: %v", err)
		return FallbackResponse
	}
	defer s.releaseRate()

	callCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	prompt := buildPlanPrompt(goal, topic)

	resp, err := s.model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		log.Printf("Gemini request failed: %v", err)
		return FallbackResponse
	}

	rawText := extractText(resp)
	if rawText == "" {
		log.Println("WARNING: Gemini returned empty text. Using fallback.")
		return FallbackResponse
	}

	return rawText
}

func buildPlanPrompt(goal, topic string) string {
	return fmt.Sprintf(`Return ONLY valid JSON with this exact shape:
{
  "title": "string",
  "summary": "string",
  "steps": [
    {"title": "string", "detail": "string"}
  ]
}

Goal: %s
Topic: %s

Rules:
- Keep steps actionable and concise.
- Use 6-10 steps.
- Do not include markdown, checklist markers, or prose outside JSON.
`, goal, topic)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
