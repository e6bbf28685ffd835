package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/andrei-assa/fda-gpt/config"
)

// fakeOpenAI is an httptest stand-in for the chat completions endpoint.
// Plain requests get reply; streamed requests get chunks as SSE events.
type fakeOpenAI struct {
	srv *httptest.Server

	mu         sync.Mutex
	requests   []openai.ChatCompletionRequest
	authTokens []string

	reply        string
	chunks       []string
	replyStatus  int
	streamStatus int
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOpenAI) llmConfig() config.LLMConfig {
	return config.LLMConfig{
		APIKey:               "sk-test",
		BaseURL:              f.srv.URL + "/v1",
		Model:                "gpt-3.5-turbo-16k",
		TranslatorTemp:       0,
		AnswerTemp:           0.7,
		MaxContextTokens:     16000,
		ContextFraction:      0.2,
		AnswerTokensFraction: 0.4,
	}
}

func (f *fakeOpenAI) recorded() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

func (f *fakeOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.authTokens = append(f.authTokens, r.Header.Get("Authorization"))
	f.mu.Unlock()

	if req.Stream {
		f.writeStream(w)
		return
	}
	f.writeReply(w)
}

func writeAPIError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
}

func (f *fakeOpenAI) writeReply(w http.ResponseWriter) {
	if f.replyStatus != 0 {
		writeAPIError(w, f.replyStatus)
		return
	}
	content, _ := json.Marshal(f.reply)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo-16k",`+
		`"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, content)
}

func (f *fakeOpenAI) writeStream(w http.ResponseWriter) {
	if f.streamStatus != 0 {
		writeAPIError(w, f.streamStatus)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, chunk := range f.chunks {
		content, _ := json.Marshal(chunk)
		fmt.Fprintf(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-3.5-turbo-16k",`+
			`"choices":[{"index":0,"delta":{"content":%s},"finish_reason":null}]}`+"\n\n", content)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}
