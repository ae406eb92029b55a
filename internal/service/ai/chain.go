package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
)

// ChainBackend streams answers from an eino chat model through a
// system/user prompt chain.
type ChainBackend struct {
	name  string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArk creates the Volcengine Ark chat model and compiles the prompt chain.
func NewArk(ctx context.Context, cfg config.AIConfig) (*ChainBackend, error) {
	chatModel, err := newArkChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChainBackend(ctx, "ark", chatModel)
}

// NewChainBackend wraps any eino chat model.
func NewChainBackend(ctx context.Context, name string, chatModel model.BaseChatModel) (*ChainBackend, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ChainBackend{name: name, chain: runnable}, nil
}

func newArkChatModel(ctx context.Context, c config.AIConfig) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing: need ARK_MODEL plus ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY")
	}

	temperature := float32(c.Temperature)
	maxTokens := maxTokensOr(c.MaxTokens, 400)

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.ArkModel,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
}

func (a *ChainBackend) Name() string { return a.name }

func (a *ChainBackend) Generate(ctx context.Context, p Prompt, emit DeltaFunc) error {
	stream, err := a.chain.Stream(ctx, map[string]any{
		"system": p.System,
		"query":  p.User,
	})
	if err != nil {
		return fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := emit(chunk.Content); err != nil {
			return err
		}
	}
}
