package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"welfareBot/domain"
	"welfareBot/pkg/logger"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrExtractorResponse marks a reply from the language model that could not
// be turned into signals: non-2xx status, unparsable body or payload.
var ErrExtractorResponse = errors.New("extractor returned an unusable response")

const (
	historyPlaceholder = "<<CONVERSATION_HISTORY>>"
	signalsPlaceholder = "<<DETECTED_SIGNALS_JSON>>"
	lastUserHolder     = "<<LAST_USER_MESSAGE>>"
	lastAssistHolder   = "<<LAST_ASSISTANT_MESSAGE>>"

	maxResponseBytes = 1 << 20
)

// matchPayloadSchema describes the JSON document the match prompt asks the
// model to answer with.
const matchPayloadSchema = `{
  "type": "object",
  "required": ["signals"],
  "properties": {
    "assistantMessage": {"type": ["string", "null"]},
    "signals": {"type": "array", "items": {"type": "string"}},
    "insufficient_info": {"type": ["boolean", "null"]}
  }
}`

type Config struct {
	APIKey             string
	Model              string
	BaseURL            string
	Timeout            time.Duration
	MatchPromptPath    string
	FollowupPromptPath string
}

type OpenAIRepository struct {
	cfg            Config
	client         *http.Client
	matchPrompt    string
	followupPrompt string
	schema         *jsonschema.Schema
}

// NewOpenAIRepository reads both prompt files and compiles the payload schema.
func NewOpenAIRepository(cfg Config) (*OpenAIRepository, error) {
	match, err := os.ReadFile(cfg.MatchPromptPath)
	if err != nil {
		return nil, fmt.Errorf("read match prompt: %w", err)
	}
	followup, err := os.ReadFile(cfg.FollowupPromptPath)
	if err != nil {
		return nil, fmt.Errorf("read followup prompt: %w", err)
	}
	return newRepository(cfg, string(match), string(followup))
}

func newRepository(cfg Config, matchPrompt, followupPrompt string) (*OpenAIRepository, error) {
	schema, err := compileSchema(matchPayloadSchema)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}

	return &OpenAIRepository{
		cfg:            cfg,
		client:         &http.Client{Timeout: timeout},
		matchPrompt:    matchPrompt,
		followupPrompt: followupPrompt,
		schema:         schema,
	}, nil
}

func compileSchema(doc string) (*jsonschema.Schema, error) {
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse payload schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("match-payload.json", sch); err != nil {
		return nil, fmt.Errorf("add payload schema: %w", err)
	}
	compiled, err := compiler.Compile("match-payload.json")
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return compiled, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract asks the model for signals on the latest message. Failures are
// never retried.
func (r *OpenAIRepository) Extract(ctx context.Context, req domain.ExtractRequest) (domain.ExtractResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractResult{}, fmt.Errorf("context error: %w", err)
	}

	messages := []chatMessage{
		{Role: "system", Content: r.matchPrompt},
		{Role: "user", Content: "[USER PROFILE]\n" + profileBlock(req.User)},
	}
	for _, turn := range req.History {
		role := normalizeRole(turn.Role)
		if role == "" {
			continue
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Message})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Message})

	content, err := r.complete(ctx, messages)
	if err != nil {
		return domain.ExtractResult{}, err
	}

	return r.decodePayload(content)
}

// GenerateFollowup produces one follow-up question for the conversation.
func (r *OpenAIRepository) GenerateFollowup(ctx context.Context, req domain.FollowupRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context error: %w", err)
	}

	signals, err := json.Marshal(nonNil(req.Signals))
	if err != nil {
		signals = []byte("[]")
	}

	prompt := strings.NewReplacer(
		historyPlaceholder, req.ConversationHistory,
		signalsPlaceholder, string(signals),
		lastUserHolder, req.LastUserMessage,
		lastAssistHolder, req.LastAssistantMessage,
	).Replace(r.followupPrompt)

	content, err := r.complete(ctx, []chatMessage{{Role: "system", Content: prompt}})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (r *OpenAIRepository) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:    r.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal json payload: %w", err)
	}

	url := strings.TrimRight(r.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+r.cfg.APIKey)

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		logger.Error("openai negative response", "status", res.StatusCode, "body", truncate(string(body), 512))
		return "", fmt.Errorf("%w: status %d", ErrExtractorResponse, res.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractorResponse, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrExtractorResponse)
	}

	logger.Debug("openai_completion", "model", r.cfg.Model, "content_length", len(completion.Choices[0].Message.Content))
	return completion.Choices[0].Message.Content, nil
}

// decodePayload validates the model's embedded JSON document before decoding
// it into an ExtractResult.
func (r *OpenAIRepository) decodePayload(content string) (domain.ExtractResult, error) {
	raw := stripCodeFence(content)

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return domain.ExtractResult{}, fmt.Errorf("%w: payload is not json: %v", ErrExtractorResponse, err)
	}
	if err := r.schema.Validate(inst); err != nil {
		return domain.ExtractResult{}, fmt.Errorf("%w: %v", ErrExtractorResponse, err)
	}

	var result domain.ExtractResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.ExtractResult{}, fmt.Errorf("%w: %v", ErrExtractorResponse, err)
	}
	result.Signals = nonNil(result.Signals)
	return result, nil
}

type profile struct {
	Name      string   `json:"name"`
	Age       string   `json:"age"`
	Residence string   `json:"residence"`
	BaseTags  []string `json:"baseTags"`
}

func profileBlock(u domain.UserProfile) string {
	p := profile{
		Name:      orDefault(u.Name, "알 수 없음"),
		Age:       "미입력",
		Residence: orDefault(u.Residence, "미입력"),
		BaseTags:  nonNil(u.BaseTags),
	}
	if u.Age != nil {
		p.Age = fmt.Sprintf("%d", *u.Age)
	}

	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		raw = []byte("{}")
	}
	return string(raw) + "\n이 정보는 이미 확인된 사실이다. assistantMessage에서 다시 묻지 않는다.\n"
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant":
		return "assistant"
	case "user":
		return "user"
	default:
		return ""
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
