package copilotai

import (
	"context"
	"strings"

	copilot "github.com/github/copilot-sdk/go"
)

// SessionSpec describes one generation session.
type SessionSpec struct {
	Model    string
	System   string
	Tools    []copilot.Tool
	Provider *copilot.ProviderConfig
}

// Conversation is a single-use exchange with a Copilot session.
type Conversation interface {
	// Ask sends prompt and returns the assistant's final reply text.
	Ask(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Opener starts conversations. The SDK-backed implementation drives the
// Copilot CLI; tests substitute a fake.
type Opener interface {
	Open(ctx context.Context, spec SessionSpec) (Conversation, error)
}

type sdkOpener struct {
	cli *copilot.Client
}

func (o *sdkOpener) Open(ctx context.Context, spec SessionSpec) (Conversation, error) {
	cfg := &copilot.SessionConfig{
		Model:    spec.Model,
		Tools:    spec.Tools,
		Provider: spec.Provider,
	}
	if spec.System != "" {
		cfg.SystemMessage = &copilot.SystemMessageConfig{Mode: "append", Content: spec.System}
	}
	sess, err := o.cli.CreateSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &sdkConversation{sess: sess}, nil
}

type sdkConversation struct {
	sess *copilot.Session
}

func (c *sdkConversation) Ask(ctx context.Context, prompt string) (string, error) {
	ev, err := c.sess.SendAndWait(ctx, copilot.MessageOptions{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return replyText(ev)
}

func (c *sdkConversation) Close() error { return c.sess.Destroy() }

// replyText extracts the reply carried by the final session event.
func replyText(ev *copilot.SessionEvent) (string, error) {
	if ev == nil || ev.Data.Content == nil || strings.TrimSpace(*ev.Data.Content) == "" {
		return "", errEmptyResponse
	}
	return *ev.Data.Content, nil
}
