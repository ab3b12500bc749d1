// Package llmprovider defines the LLMProvider collaborator contract
// (complete(prompt, schema) -> structured object) and an Ollama-backed
// implementation, generalized from this codebase's chat-completion client
// to return parsed JSON into a caller-supplied target rather than a model
// reply struct.
package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Guru2308/rag-code/internal/kberrors"
)

// Provider is the LLMProvider collaborator contract: complete(prompt,
// schema) -> StructuredObject | Error. target must be a pointer; on success
// the provider's JSON reply is unmarshaled into it. Errors returned are
// kberrors.AppError values classified as ErrorTypeTransientProvider (the
// caller should retry) or a non-transient type (fail the document/window).
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, target any) error
}

// OllamaProvider implements Provider against an Ollama-compatible chat API.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama-backed LLMProvider.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Complete sends systemPrompt/userPrompt to the model and unmarshals its
// reply (expected to be a JSON document, enforced via format=json) into
// target.
func (p *OllamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, target any) error {
	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{Model: p.model, Messages: messages, Stream: false, Format: "json"}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/api/chat", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// network failure: classified transient, caller should retry
		return kberrors.TransientProviderError("failed to reach LLM provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return kberrors.TransientProviderError(fmt.Sprintf("LLM provider returned %d: %s", resp.StatusCode, string(body)), nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return kberrors.New(kberrors.ErrorTypeExternal, fmt.Sprintf("LLM provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return kberrors.TransientProviderError("failed to decode provider response envelope", err)
	}

	if err := json.Unmarshal([]byte(res.Message.Content), target); err != nil {
		// schema-validation failure: not a transport problem, but callers
		// (the section extractor) retry it with negative context attached
		return kberrors.Wrap(err, kberrors.ErrorTypeValidation, "LLM reply failed schema validation")
	}
	return nil
}
