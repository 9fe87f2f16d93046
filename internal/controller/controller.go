// Package controller orchestrates the chat flow: input handling,
// generation, transcript assembly, persistence, and navigation.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/parley-chat/parley/internal/generator"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

// View receives conversation output and status lines.
type View interface {
	User(msg session.Message)
	Transcript(chatID string, messages []session.Message)
	Status(text string)
	Error(err error)
}

// Options configures a controller.
type Options struct {
	Provider     string
	Model        string
	SystemPrompt string

	// Limiter caps generation requests. Nil disables limiting.
	Limiter *rate.Limiter
}

// Controller connects the session store, the generators, and the view.
// Send is synchronous; Interrupt may be called concurrently from a
// signal handler.
type Controller struct {
	store      *session.Store
	view       View
	assembler  *stream.Assembler
	generators *generator.Registry
	limiter    *rate.Limiter

	provider     string
	model        string
	systemPrompt string

	mu         sync.Mutex
	generating bool
	activeGen  generator.Generator
}

// New creates a controller. The sink receives live stream output; the
// view receives finished messages and status lines.
func New(store *session.Store, generators *generator.Registry, view View, sink stream.Sink, opts Options) *Controller {
	c := &Controller{
		store:        store,
		view:         view,
		assembler:    stream.NewAssembler(sink),
		generators:   generators,
		limiter:      opts.Limiter,
		provider:     opts.Provider,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
	}
	c.assembler.OnFinalized(c.handleFinal)
	c.assembler.OnError(c.handleGenerationError)
	return c
}

// Generating reports whether a generation is in flight.
func (c *Controller) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// Provider returns the active provider name.
func (c *Controller) Provider() string { return c.provider }

// Model returns the active model name.
func (c *Controller) Model() string { return c.model }

// SelectModel switches the active provider and model.
func (c *Controller) SelectModel(provider, model string) error {
	if !c.generators.Has(provider) {
		return fmt.Errorf("generator '%s' not found", provider)
	}
	c.provider = provider
	c.model = model
	c.view.Status(fmt.Sprintf("Selected: %s - %s", provider, model))
	return nil
}

// Send submits user input with optional attached filenames, streams
// the response, and persists the turn. It blocks until the stream
// finishes or fails.
func (c *Controller) Send(ctx context.Context, input string, filenames []string) error {
	if c.Generating() {
		c.view.Status("Please wait for the current response to finish.")
		return nil
	}
	if strings.TrimSpace(input) == "" && len(filenames) == 0 {
		c.view.Status("Error: Input cannot be empty.")
		return nil
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.view.Status("Rate limit exceeded; try again shortly.")
		return nil
	}

	if c.store.CurrentID() == "" {
		c.store.NewSession()
	}

	displayText := input
	if displayText == "" && len(filenames) > 0 {
		plural := ""
		if len(filenames) > 1 {
			plural = "s"
		}
		displayText = fmt.Sprintf("Process file%s: %s", plural, strings.Join(filenames, ", "))
	}

	userMsg := c.store.AppendNew(session.RoleUser, displayText, filenames)
	c.view.User(userMsg)

	// The new user message is already in the store; the request
	// history carries only what preceded it.
	history := c.store.Messages()
	history = history[:len(history)-1]

	gen, err := c.generators.Get(c.provider)
	if err != nil {
		c.view.Error(err)
		return err
	}

	c.mu.Lock()
	c.generating = true
	c.activeGen = gen
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.generating = false
		c.activeGen = nil
		c.mu.Unlock()
	}()

	req := generator.NewRequest(c.model, c.systemPrompt, history, input)
	events, err := gen.Generate(ctx, req)
	if err != nil {
		c.view.Error(err)
		return err
	}

	for ev := range events {
		c.assembler.Handle(ev)
	}
	return nil
}

// Interrupt cancels the generation in flight, if any. Accumulated
// partial output is kept and persisted. Interruption requires the
// active generator to be Cancellable.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.generating || c.activeGen == nil {
		return
	}
	cancellable, ok := c.activeGen.(generator.Cancellable)
	if !ok {
		c.view.Status("This generator does not support interruption.")
		return
	}
	c.view.Status("Interrupting generation...")
	cancellable.Cancel()
}

// NewChat saves the current conversation if it has messages, then
// starts a fresh one.
func (c *Controller) NewChat(ctx context.Context) {
	if c.Generating() {
		c.view.Status("Cannot create a new chat while generating.")
		return
	}
	if len(c.store.Messages()) > 0 {
		c.saveCurrent(ctx)
	}
	c.store.NewSession()
	c.view.Status("New chat created.")
}

// Navigate moves to the chronological neighbor in the given
// direction. Moving right past the newest conversation starts a new
// one. An unsaved current conversation is persisted first.
func (c *Controller) Navigate(ctx context.Context, dir session.Direction) {
	if c.Generating() {
		c.view.Status("Cannot navigate while generating.")
		return
	}

	if id := c.store.CurrentID(); id != "" && len(c.store.Messages()) > 0 && !c.persisted(ctx, id) {
		c.saveCurrent(ctx)
	}

	adjacent, ok := c.store.Adjacent(ctx, dir)
	if ok {
		sess, err := c.store.Load(ctx, adjacent)
		if err != nil {
			c.view.Status(fmt.Sprintf("Failed to load chat: %s", adjacent))
			return
		}
		c.view.Transcript(sess.ChatID, sess.Messages)
		c.view.Status(fmt.Sprintf("Loaded chat: %s", adjacent))
		return
	}
	if dir == session.Older {
		c.view.Status("No previous chat.")
		return
	}
	c.NewChat(ctx)
}

// DeleteCurrent removes the current conversation and loads a
// neighbor, or starts fresh when none remain.
func (c *Controller) DeleteCurrent(ctx context.Context) {
	if c.Generating() {
		c.view.Status("Cannot delete chat while generating.")
		return
	}
	id := c.store.CurrentID()
	if id == "" {
		c.view.Status("No chat to delete.")
		return
	}

	if !c.store.Delete(ctx, id) {
		c.view.Status("Failed to delete chat.")
		observability.RecordSessionOp("delete", "error")
		return
	}
	observability.RecordSessionOp("delete", "ok")

	adjacent, ok := c.store.Adjacent(ctx, session.Older)
	if !ok {
		adjacent, ok = c.store.Adjacent(ctx, session.Newer)
	}
	if ok {
		if sess, err := c.store.Load(ctx, adjacent); err == nil {
			c.view.Transcript(sess.ChatID, sess.Messages)
			c.view.Status(fmt.Sprintf("Chat deleted. Loaded chat: %s", adjacent))
			return
		}
	}
	c.store.NewSession()
	c.view.Status("Chat deleted. New chat created.")
}

// DeleteAll removes every persisted conversation and starts fresh.
func (c *Controller) DeleteAll(ctx context.Context) {
	if c.Generating() {
		c.view.Status("Cannot delete all chats while generating.")
		return
	}
	if len(c.store.List(ctx)) == 0 {
		c.view.Status("No chats to delete.")
		return
	}

	if c.store.DeleteAll(ctx) {
		c.store.Clear()
		c.store.NewSession()
		c.view.Status("All chats deleted. New chat created.")
	} else {
		c.view.Status("Failed to delete some chats.")
	}
}

// LoadChat loads a specific conversation by ID and renders it.
func (c *Controller) LoadChat(ctx context.Context, id string) error {
	if c.Generating() {
		c.view.Status("Cannot navigate while generating.")
		return nil
	}
	sess, err := c.store.Load(ctx, id)
	if err != nil {
		return err
	}
	c.view.Transcript(sess.ChatID, sess.Messages)
	return nil
}

// ListChats returns persisted conversation IDs, oldest first.
func (c *Controller) ListChats(ctx context.Context) []string {
	return c.store.List(ctx)
}

func (c *Controller) handleFinal(msg session.Message) {
	c.store.Append(msg)
	c.saveCurrent(context.Background())
}

func (c *Controller) handleGenerationError(err error) {
	c.view.Error(err)
}

func (c *Controller) saveCurrent(ctx context.Context) {
	id, err := c.store.SaveCurrent(ctx)
	if err != nil {
		// Keep the conversation in memory; losing the transcript
		// would be worse than a failed write.
		c.view.Status(fmt.Sprintf("Warning: failed to save chat: %v", err))
		observability.RecordSessionOp("save", "error")
		return
	}
	observability.RecordSessionOp("save", "ok")
	c.view.Status(fmt.Sprintf("Chat saved: %s", id))
}

func (c *Controller) persisted(ctx context.Context, id string) bool {
	for _, existing := range c.store.List(ctx) {
		if existing == id {
			return true
		}
	}
	return false
}
