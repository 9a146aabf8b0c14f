package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/mrsingh-rishi/voice-assistant/model"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestRespondSendsHistoryWithFixedSampling(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockChatClient(ctrl)

	history := []model.Message{
		{Role: model.RoleSystem, Content: "You are a helpful AI assistant."},
		{Role: model.RoleUser, Content: "hello"},
	}
	client.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			assert.Equal(t, openai.GPT3Dot5Turbo, req.Model)
			assert.Equal(t, float32(0.7), req.Temperature)
			assert.Equal(t, 4096, req.MaxTokens)
			assert.Equal(t, 1, req.N)
			assert.Equal(t, []openai.ChatCompletionMessage{
				{Role: "system", Content: "You are a helpful AI assistant."},
				{Role: "user", Content: "hello"},
			}, req.Messages)
			return reply("\n  Hi! How can I help?  "), nil
		})

	r := NewResponder(client, Config{Temperature: DefaultTemperature})
	text, err := r.Respond(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", text)
}

func TestRespondUpstreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockChatClient(ctrl)
	client.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
		Return(openai.ChatCompletionResponse{}, errors.New("rate limited")).Times(1)

	_, err := NewResponder(client, Config{}).Respond(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUpstream))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRespondNoChoices(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockChatClient(ctrl)
	client.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).Return(openai.ChatCompletionResponse{}, nil)

	_, err := NewResponder(client, Config{}).Respond(context.Background(), nil)
	assert.True(t, model.IsKind(err, model.KindUpstream))
}

func TestRespondCustomModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockChatClient(ctrl)
	client.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.Equal(t, 256, req.MaxTokens)
			return reply("ok"), nil
		})

	text, err := NewResponder(client, Config{Model: "gpt-4o-mini", MaxTokens: 256}).Respond(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
