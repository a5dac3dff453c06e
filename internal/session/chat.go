package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/internal/history"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	"github.com/sonoglot/sonoglot/pkg/types"
)

// defaultChatSystemPrompt frames the assistant for questions about the live
// transcription. Clients may override it per request.
const defaultChatSystemPrompt = `Você é um assistente que acompanha uma transcrição ao vivo.
Responda de forma direta e no idioma da pergunta, usando a transcrição como contexto quando relevante.`

// Chat generation parameters. Thinking mode trades latency for a longer,
// more deliberate answer.
const (
	chatTemperature     = 0.5
	chatMaxTokens       = 1000
	thinkingTemperature = 0.7
	thinkingMaxTokens   = 8000
)

// transcriptContextBytes caps how much of the transcript is appended to the
// system prompt.
const transcriptContextBytes = 6000

// webSearchTool is offered to the model when the client enables web search
// and the provider supports tool calling.
var webSearchTool = types.ToolDefinition{
	Name:        "web_search",
	Description: "Busca informações atualizadas na web para complementar a resposta.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Termos de busca.",
			},
		},
		"required": []string{"query"},
	},
}

// ErrChatUnavailable is returned when no chat provider is configured.
var ErrChatUnavailable = errors.New("session: no chat provider configured")

// ChatRequest is one assistant-chat exchange from the client.
type ChatRequest struct {
	// Message is the user's question.
	Message string `json:"message"`

	// History is the client-side conversation so far. When empty, the
	// persisted chat log for this session is used instead.
	History []history.ChatMessage `json:"history,omitempty"`

	// Transcript optionally overrides the session transcript injected into
	// the system prompt.
	Transcript string `json:"transcript,omitempty"`

	// SystemPrompt optionally replaces the default assistant framing.
	SystemPrompt string `json:"systemPrompt,omitempty"`

	// ThinkingMode requests a longer, more deliberate answer.
	ThinkingMode bool `json:"thinkingMode,omitempty"`

	// EnableWebSearch offers the provider a web-search tool.
	EnableWebSearch bool `json:"enableWebSearch,omitempty"`
}

// ChatResponse carries the assistant's answer.
type ChatResponse struct {
	// Response is the assistant's reply text.
	Response string `json:"response"`

	// HasWebSearch reports whether the web-search tool was actually offered
	// to the model for this request.
	HasWebSearch bool `json:"hasWebSearch"`
}

// Chat answers a user question with the session transcript as context. The
// conversation window is bounded by the configured chat history window, and
// both sides of the exchange are persisted to the history store.
func (s *Session) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if s.chat == nil {
		return ChatResponse{}, ErrChatUnavailable
	}
	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, errors.New("session: empty chat message")
	}

	window, err := s.chatWindow(ctx, req.History)
	if err != nil {
		slog.Warn("session: chat history unavailable", "session_id", s.id, "err", err)
	}

	messages := make([]types.Message, 0, len(window)+1)
	for _, m := range window {
		messages = append(messages, types.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, types.Message{Role: "user", Content: req.Message})

	llmReq := llm.CompletionRequest{
		SystemPrompt: s.chatSystemPrompt(req),
		Messages:     messages,
		Temperature:  chatTemperature,
		MaxTokens:    chatMaxTokens,
	}
	if req.ThinkingMode {
		llmReq.Temperature = thinkingTemperature
		llmReq.MaxTokens = thinkingMaxTokens
	}

	hasWebSearch := req.EnableWebSearch && s.chat.Capabilities().SupportsToolCalling
	if hasWebSearch {
		llmReq.Tools = []types.ToolDefinition{webSearchTool}
	}

	start := time.Now()
	resp, err := s.chat.Complete(ctx, llmReq)
	s.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "chat", "llm")
		return ChatResponse{}, fmt.Errorf("session: chat: %w", err)
	}
	if resp == nil {
		return ChatResponse{}, errors.New("session: chat: provider returned no response")
	}

	s.persistChat(ctx, req.Message, resp.Content)
	return ChatResponse{Response: resp.Content, HasWebSearch: hasWebSearch}, nil
}

// chatWindow returns the bounded conversation history: the client-supplied
// history when present, the persisted log otherwise.
func (s *Session) chatWindow(ctx context.Context, clientHistory []history.ChatMessage) ([]history.ChatMessage, error) {
	window := s.settings.ChatHistoryWindow
	if window <= 0 {
		window = config.DefaultChatHistoryWindow
	}

	if len(clientHistory) > 0 {
		if len(clientHistory) > window {
			clientHistory = clientHistory[len(clientHistory)-window:]
		}
		return clientHistory, nil
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.RecentChat(ctx, s.id, window)
}

// chatSystemPrompt assembles the system prompt with the transcript appended
// as context.
func (s *Session) chatSystemPrompt(req ChatRequest) string {
	prompt := req.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultChatSystemPrompt
	}

	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" {
		transcript = s.board.Transcript()
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return prompt
	}
	if len(transcript) > transcriptContextBytes {
		transcript = transcript[len(transcript)-transcriptContextBytes:]
		for len(transcript) > 0 && !utf8.RuneStart(transcript[0]) {
			transcript = transcript[1:]
		}
	}
	return prompt + "\n\nTranscrição da sessão até agora:\n" + transcript
}

// persistChat records both sides of the exchange; failures are logged, not
// surfaced.
func (s *Session) persistChat(ctx context.Context, question, answer string) {
	if s.history == nil {
		return
	}
	now := time.Now().UTC()
	if err := s.history.AppendChat(ctx, s.id, history.ChatMessage{Role: "user", Content: question, CreatedAt: now}); err != nil {
		slog.Warn("session: persist chat question failed", "session_id", s.id, "err", err)
		return
	}
	if err := s.history.AppendChat(ctx, s.id, history.ChatMessage{Role: "assistant", Content: answer, CreatedAt: now}); err != nil {
		slog.Warn("session: persist chat answer failed", "session_id", s.id, "err", err)
	}
}
