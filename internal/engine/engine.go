// Package engine drives retrieval-augmented conversations: it rewrites
// the incoming message against recent history, retrieves supporting
// chunks, generates a grounded answer, and commits the exchange.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/docsentry/docsentry/internal/llm"
	"github.com/docsentry/docsentry/internal/router"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// Options tune one engine instance.
type Options struct {
	Model         string
	HistoryWindow int // turns of history fed to reformulation
	TopK          int // chunks retrieved per message
}

// DefaultOptions are used for zero-valued fields.
var DefaultOptions = Options{
	HistoryWindow: 6,
	TopK:          5,
}

// Engine processes chat messages for stored sessions. Messages within
// one session are handled strictly in arrival order; different sessions
// proceed in parallel.
type Engine struct {
	provider llm.Provider
	vectors  vectordb.Store
	sessions *session.Store
	router   *router.Router
	opts     Options

	mu         sync.Mutex
	perSession map[string]*sync.Mutex
}

// New creates an engine. The router may be nil when keyword routing is
// not wanted.
func New(provider llm.Provider, vectors vectordb.Store, sessions *session.Store, r *router.Router, opts Options) *Engine {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultOptions.HistoryWindow
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions.TopK
	}
	return &Engine{
		provider:   provider,
		vectors:    vectors,
		sessions:   sessions,
		router:     r,
		opts:       opts,
		perSession: make(map[string]*sync.Mutex),
	}
}

// Request is one user message addressed to a session.
type Request struct {
	SessionID string
	Message   string
	// RouteKeywords additionally selects matching keywords from the
	// retrieved chunks through the constrained router.
	RouteKeywords bool
}

// Reply is the committed outcome of processing one request. Role is
// session.RoleSystemError when the provider failed and the failure was
// recorded in the conversation instead of an answer.
type Reply struct {
	Role         session.Role
	Content      string
	Reformulated string
	Retrieved    []vectordb.SearchResult
	Routed       []string
}

// Process handles one message end to end. The user turn and its
// response are committed atomically; cancellation before the commit
// leaves the session untouched.
func (e *Engine) Process(ctx context.Context, req Request) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("empty message")
	}

	lock := e.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", req.SessionID)
	}

	history, err := e.sessions.Turns(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	query := e.reformulate(ctx, req.Message, history)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	retrieved, err := e.vectors.Query(ctx, query, e.opts.TopK, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return e.commitFailure(ctx, req, query, fmt.Errorf("retrieving chunks: %w", err))
	}

	answer, err := e.generate(ctx, req.Message, history, retrieved)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return e.commitFailure(ctx, req, query, fmt.Errorf("generating answer: %w", err))
	}

	var routed []string
	if req.RouteKeywords && e.router != nil {
		vocab := keywordVocabulary(retrieved)
		if len(vocab) > 0 {
			routed, err = e.router.Route(ctx, req.Message, vocab)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Warn("keyword routing failed", "session", req.SessionID, "err", err)
				routed = nil
			}
		} else {
			routed = []string{router.Sentinel}
		}
	}

	assistant := &session.Turn{
		Role:      session.RoleAssistant,
		Content:   answer,
		ChunkRefs: chunkRefs(retrieved),
	}
	if routed != nil {
		encoded, err := json.Marshal(routed)
		if err != nil {
			return nil, fmt.Errorf("encoding routed keywords: %w", err)
		}
		assistant.FunctionResult = string(encoded)
	}

	user := &session.Turn{Role: session.RoleUser, Content: req.Message}
	if err := e.sessions.AppendExchange(ctx, req.SessionID, user, assistant); err != nil {
		return nil, fmt.Errorf("committing exchange: %w", err)
	}

	return &Reply{
		Role:         session.RoleAssistant,
		Content:      answer,
		Reformulated: query,
		Retrieved:    retrieved,
		Routed:       routed,
	}, nil
}

// commitFailure records the user turn together with a system-error turn
// so the failure stays visible in the conversation.
func (e *Engine) commitFailure(ctx context.Context, req Request, query string, cause error) (*Reply, error) {
	slog.Error("exchange failed", "session", req.SessionID, "err", cause)

	user := &session.Turn{Role: session.RoleUser, Content: req.Message}
	failure := &session.Turn{
		Role:    session.RoleSystemError,
		Content: fmt.Sprintf("The assistant could not complete this request: %v", cause),
	}
	if err := e.sessions.AppendExchange(ctx, req.SessionID, user, failure); err != nil {
		return nil, fmt.Errorf("recording failure (%v): %w", cause, err)
	}
	return &Reply{
		Role:         session.RoleSystemError,
		Content:      failure.Content,
		Reformulated: query,
	}, nil
}

// reformulate rewrites the message into a standalone retrieval query
// using the recent turns. With no usable history, or when the provider
// fails, the original message is used as-is.
func (e *Engine) reformulate(ctx context.Context, message string, history []session.Turn) string {
	recent := tail(history, e.opts.HistoryWindow)
	if len(recent) == 0 {
		return message
	}

	var b strings.Builder
	for _, t := range recent {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: reformulatePrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Conversation so far:\n%s\nLatest message: %s", b.String(), message)},
		},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		slog.Debug("reformulation failed, using raw message", "err", err)
		return message
	}
	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return message
	}
	return rewritten
}

func (e *Engine) generate(ctx context.Context, message string, history []session.Turn, retrieved []vectordb.SearchResult) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: answerPrompt(retrieved)},
	}
	for _, t := range tail(history, e.opts.HistoryWindow) {
		role := llm.RoleUser
		if t.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.opts.Model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.perSession[id]
	if !ok {
		lock = &sync.Mutex{}
		e.perSession[id] = lock
	}
	return lock
}

// tail keeps system-error turns out of model context.
func tail(turns []session.Turn, n int) []session.Turn {
	var usable []session.Turn
	for _, t := range turns {
		if t.Role == session.RoleUser || t.Role == session.RoleAssistant {
			usable = append(usable, t)
		}
	}
	if len(usable) > n {
		usable = usable[len(usable)-n:]
	}
	return usable
}

func chunkRefs(retrieved []vectordb.SearchResult) []string {
	refs := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		refs = append(refs, r.Record.ID)
	}
	return refs
}

func keywordVocabulary(retrieved []vectordb.SearchResult) []string {
	seen := make(map[string]bool)
	var vocab []string
	for _, r := range retrieved {
		for _, kw := range r.Record.Metadata.Keywords {
			key := strings.ToLower(kw)
			if kw == "" || seen[key] {
				continue
			}
			seen[key] = true
			vocab = append(vocab, kw)
		}
	}
	sort.Strings(vocab)
	return vocab
}
