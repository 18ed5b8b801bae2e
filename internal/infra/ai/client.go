// Package ai implements the live question generator against an OpenAI-style
// chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asaa-quiz-service/internal/domain"
)

type Client struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	model      string
}

func NewClient(apiKey, apiURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
	}
}

// IsAvailable reports whether the client is configured at all.
func (c *Client) IsAvailable() bool {
	return c.apiKey != "" && c.apiURL != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You are a quiz generator for a community association. Respond with ONLY a valid JSON array (no markdown, no code fences, no explanations) of question objects in this exact shape:

[
  {
    "questionText": "La question posée",
    "options": ["choix A", "choix B", "choix C", "choix D"],
    "correctAnswerIndex": 0,
    "explanation": "Une courte explication de la réponse"
  }
]

Rules:
- Each question must have exactly 4 options and exactly one correct answer
- correctAnswerIndex is the 0-based index of the correct option
- Questions must be respectful, factually accurate and varied in difficulty
- Write everything in French
- Return ONLY the JSON array, nothing else`

// Fetch asks the model for count MCQ questions about Islam (history, Quran,
// hadith, fiqh) in French and validates the returned records. Records with a
// wrong option count or an out-of-range answer index are dropped.
func (c *Client) Fetch(ctx context.Context, count int) ([]domain.Question, error) {
	if !c.IsAvailable() {
		return nil, domain.ErrQuestionSourceUnavailable
	}

	prompt := fmt.Sprintf("Génère %d questions à choix multiples (QCM) sur l'Islam (Histoire, Coran, Hadith, Fiqh) en français. Les questions doivent être respectueuses, précises et variées.", count)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse api response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("api error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	content := cleanJSONContent(chatResp.Choices[0].Message.Content)

	var raw []domain.Question
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}

	questions := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		if !validQuestion(q) {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model returned no usable questions")
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func validQuestion(q domain.Question) bool {
	if strings.TrimSpace(q.QuestionText) == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	return q.CorrectAnswerIndex >= 0 && q.CorrectAnswerIndex < len(q.Options)
}

func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
