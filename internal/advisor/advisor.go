// Package advisor talks to an OpenAI-compatible model on behalf of the
// playground: scoring submissions, checking outputs, hinting, and tutoring
// chat. Every request draws a key from the shared pool so quota errors on one
// key roll over to the next.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/kshou/lualab/internal/keypool"
)

const maxKeyAttempts = 3

// Submission carries everything the model needs about one student attempt.
// Question and Expected are optional depending on the operation.
type Submission struct {
	Code     string
	Question string
	Output   string
	Expected string
}

// Analysis is the structured review of a submission.
type Analysis struct {
	Feedback        string `json:"feedback"`
	Overall         int    `json:"overall_score"`
	TimeComplexity  int    `json:"time_complexity"`
	SpaceComplexity int    `json:"space_complexity"`
	Readability     int    `json:"readability"`
	Stability       int    `json:"stability"`
}

// CheckResult reports whether actual output matches the expected output.
type CheckResult struct {
	Match       bool     `json:"match"`
	Score       int      `json:"score"`
	Differences []string `json:"differences"`
}

// ChatMessage is one turn of tutoring chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamHandler receives text deltas during chat streaming.
type StreamHandler func(delta string)

// Advisor issues completions against an OpenAI-compatible endpoint.
type Advisor struct {
	keys    *keypool.Pool
	model   string
	baseURL string
	prompts *Prompts

	// requestOpts lets tests inject extra client options.
	requestOpts []option.RequestOption
}

// New creates an advisor. A nil prompts uses the built-in templates.
func New(keys *keypool.Pool, baseURL, model string, prompts *Prompts) *Advisor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Advisor{
		keys:    keys,
		model:   model,
		baseURL: baseURL,
		prompts: prompts,
	}
}

func (a *Advisor) newClient(key string) openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(a.baseURL),
		option.WithAPIKey(key),
	}
	return openai.NewClient(append(opts, a.requestOpts...)...)
}

// quotaError reports whether err looks like a rate or quota failure worth
// retrying on another key.
func quotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// complete runs one chat completion, rotating to the next key on quota
// errors. Non-quota errors fail immediately.
func (a *Advisor) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var content string
	var failure error
	_, err := a.keys.AcquireWithRetry(ctx, maxKeyAttempts, func(ctx context.Context, key string) error {
		client := a.newClient(key)
		completion, cerr := client.Chat.Completions.New(ctx, params)
		if cerr != nil {
			if quotaError(cerr) {
				return cerr
			}
			failure = cerr
			return nil
		}
		if len(completion.Choices) == 0 {
			failure = fmt.Errorf("no choices returned")
			return nil
		}
		content = completion.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if failure != nil {
		return "", fmt.Errorf("chat completion: %w", failure)
	}
	return content, nil
}

// Analyze scores a submission and returns structured feedback.
func (a *Advisor) Analyze(ctx context.Context, sub Submission) (*Analysis, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(renderPrompt(a.prompts.Analyze, sub)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "code_analysis",
					Schema: analysisSchema(),
					Strict: param.NewOpt(true),
				},
			},
		},
	}

	content, err := a.complete(ctx, params)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{}
	if err := json.Unmarshal([]byte(stripFences(content)), analysis); err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}
	return analysis, nil
}

// Check asks the model to compare actual output against expected output.
func (a *Advisor) Check(ctx context.Context, sub Submission) (*CheckResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(renderPrompt(a.prompts.Check, sub)),
		},
	}

	content, err := a.complete(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{}
	if err := json.Unmarshal([]byte(stripFences(content)), result); err != nil {
		return nil, fmt.Errorf("parsing check result: %w", err)
	}
	return result, nil
}

// Suggest returns a single hint without revealing the solution.
func (a *Advisor) Suggest(ctx context.Context, sub Submission) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(renderPrompt(a.prompts.Suggest, sub)),
		},
	}
	return a.complete(ctx, params)
}

// ChatStream runs a tutoring chat turn, calling handler with each text delta.
// The submission seeds the system prompt so the model sees the student's
// current code and exercise.
func (a *Advisor) ChatStream(ctx context.Context, sub Submission, history []ChatMessage, handler StreamHandler) error {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(renderPrompt(a.prompts.Chat, sub)),
	}
	for _, m := range history {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
	}

	var failure error
	_, err := a.keys.AcquireWithRetry(ctx, maxKeyAttempts, func(ctx context.Context, key string) error {
		client := a.newClient(key)
		stream := client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		delivered := false
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && handler != nil {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					delivered = true
					handler(delta)
				}
			}
		}
		if serr := stream.Err(); serr != nil {
			// Once text reached the handler we cannot restart cleanly.
			if quotaError(serr) && !delivered {
				return serr
			}
			failure = serr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	if failure != nil {
		return fmt.Errorf("chat stream: %w", failure)
	}
	return nil
}

func analysisSchema() map[string]any {
	score10 := map[string]any{"type": "integer", "minimum": 0, "maximum": 10}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feedback":         map[string]any{"type": "string"},
			"overall_score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"time_complexity":  score10,
			"space_complexity": score10,
			"readability":      score10,
			"stability":        score10,
		},
		"required": []string{
			"feedback", "overall_score", "time_complexity",
			"space_complexity", "readability", "stability",
		},
		"additionalProperties": false,
	}
}

// stripFences removes a surrounding markdown code fence that some models add
// despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
