package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"zerosum/config"
	"zerosum/game"
)

const (
	openRouterPrefix = "openrouter/"
	openAIPrefix     = "openai/"
)

// LLM asks a chat-completions model for moves.
type LLM struct {
	client      *openai.Client
	model       string
	game        game.Game
	temperature float32
	maxTokens   int
}

type apiConfig struct {
	model   string
	key     string
	baseURL string
}

// resolveAPIConfig picks provider, credentials and the provider-local model
// name from a model reference such as "openrouter/meta-llama/llama-3.3-70b".
func resolveAPIConfig(model string, cfg config.LLM) (apiConfig, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return apiConfig{}, errors.New("model missing")
	}
	api := apiConfig{model: model, key: cfg.OpenAIKey, baseURL: cfg.OpenAIBaseURL}
	switch {
	case strings.HasPrefix(model, openRouterPrefix):
		api.model = strings.TrimPrefix(model, openRouterPrefix)
		api.key = firstNonEmpty(cfg.OpenRouterKey, cfg.OpenAIKey)
		api.baseURL = cfg.OpenRouterBaseURL
	case strings.HasPrefix(model, openAIPrefix):
		api.model = strings.TrimPrefix(model, openAIPrefix)
	case cfg.OpenAIKey == "" && cfg.OpenRouterKey != "":
		api.key = cfg.OpenRouterKey
		api.baseURL = cfg.OpenRouterBaseURL
	}
	if api.key == "" {
		return apiConfig{}, errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
	}
	return api, nil
}

func NewLLM(model string, g game.Game, cfg config.LLM) (*LLM, error) {
	api, err := resolveAPIConfig(model, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", model, err)
	}
	clientConfig := openai.DefaultConfig(api.key)
	if api.baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(api.baseURL, "/")
	}
	clientConfig.OrgID = cfg.OpenAIOrg
	return &LLM{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       api.model,
		game:        g,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *LLM) ProposeMove(ctx context.Context, state game.State, role game.Role, feedback string) (game.Move, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.instructions(state, role)},
			{Role: openai.ChatMessageRoleUser, Content: prompt(state, feedback)},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", p.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", game.Invalid(role, "", "model returned no choices")
	}
	content := resp.Choices[0].Message.Content
	move, err := ParseMove(content)
	if err != nil {
		raw := rawAnswer(content)
		return raw, game.Invalid(role, raw, "%v", err)
	}
	return move, nil
}

func (p *LLM) instructions(state game.State, role game.Role) string {
	if d, ok := p.game.(game.Describer); ok {
		return d.Describe(state, role)
	}
	return fmt.Sprintf("You play %s as %q. Answer with a single line of the form `MOVE: <move>`.", p.game.Name(), role)
}

func prompt(state game.State, feedback string) string {
	var b strings.Builder
	b.WriteString("Current state:\n")
	b.WriteString(state.String())
	if feedback != "" {
		b.WriteString("\n\nYour previous answer was rejected: ")
		b.WriteString(feedback)
		b.WriteString("\nTry again.")
	}
	return b.String()
}

// ParseMove extracts the move from a model response. It takes the last
// "MOVE:" line, or the whole response when it is a single line.
func ParseMove(content string) (game.Move, error) {
	var move string
	var found bool
	var nonEmpty []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonEmpty = append(nonEmpty, line)
		if len(line) >= 5 && strings.EqualFold(line[:5], "move:") {
			move = line[5:]
			found = true
		}
	}
	if !found {
		if len(nonEmpty) != 1 {
			return "", errors.New("response has no `MOVE:` line")
		}
		move = nonEmpty[0]
	}
	move = strings.Trim(strings.TrimSpace(move), "`\"'*.")
	if move == "" {
		return "", errors.New("response contains an empty move")
	}
	return game.Move(move), nil
}

// maxRawAnswer bounds how much of an unparseable answer is kept in logs.
const maxRawAnswer = 200

func rawAnswer(content string) game.Move {
	raw := []rune(strings.TrimSpace(content))
	if len(raw) > maxRawAnswer {
		return game.Move(string(raw[:maxRawAnswer]) + "...")
	}
	return game.Move(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
