package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	body     []byte
	err      error
	input    *bedrockruntime.InvokeModelInput
	deadline bool
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockClient_ClassifyURL_Claude(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"completion": " {\"prediction\": 1}"}`)}
	client := NewBedrockClient(rt, "anthropic.claude-v2", 100, 0.1, 0.9, time.Second, zap.NewNop())

	prediction, err := client.ClassifyURL(context.Background(), "http://10.0.0.1/login", features.OrderedVector{
		Names:  []string{features.HasIP},
		Values: []float64{1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, prediction)
	assert.True(t, rt.deadline)
	assert.Equal(t, "anthropic.claude-v2", *rt.input.ModelId)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rt.input.Body, &payload))
	assert.Contains(t, payload["prompt"], "http://10.0.0.1/login")
	assert.Contains(t, payload, "max_tokens_to_sample")
}

func TestBedrockClient_ClassifyEmail_Titan(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"results": [{"outputText": "{\"phishing_probability\": 0.85}"}]}`)}
	client := NewBedrockClient(rt, "amazon.titan-text-express-v1", 100, 0.1, 0.9, 0, zap.NewNop())

	probs, err := client.ClassifyEmail(context.Background(), "verify your account now")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, probs.Phishing, 1e-9)
	assert.InDelta(t, 0.15, probs.Legitimate, 1e-9)
	assert.False(t, rt.deadline)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rt.input.Body, &payload))
	assert.Contains(t, payload["inputText"], "verify your account now")
}

func TestBedrockClient_GenericResponse(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"output": "{\"prediction\": 0}"}`)}
	client := NewBedrockClient(rt, "meta.llama3", 100, 0.1, 0.9, 0, zap.NewNop())

	prediction, err := client.ClassifyURL(context.Background(), "https://example.com", features.OrderedVector{})
	require.NoError(t, err)
	assert.Equal(t, 0, prediction)
}

func TestBedrockClient_Errors(t *testing.T) {
	cause := errors.New("throttled")
	client := NewBedrockClient(&fakeRuntime{err: cause}, "anthropic.claude-v2", 100, 0.1, 0.9, 0, zap.NewNop())

	_, err := client.ClassifyEmail(context.Background(), "verify your account now")
	assert.ErrorIs(t, err, cause)

	client = NewBedrockClient(&fakeRuntime{body: []byte(`{"results": []}`)}, "amazon.titan-text-lite-v1", 100, 0.1, 0.9, 0, zap.NewNop())
	_, err = client.ClassifyEmail(context.Background(), "verify your account now")
	assert.Error(t, err)

	client = NewBedrockClient(&fakeRuntime{body: []byte(`{"completion": "not sure"}`)}, "anthropic.claude-v2", 100, 0.1, 0.9, 0, zap.NewNop())
	_, err = client.ClassifyURL(context.Background(), "https://example.com", features.OrderedVector{})
	assert.Error(t, err)
}

func TestBedrockClient_Name(t *testing.T) {
	client := NewBedrockClient(&fakeRuntime{}, "anthropic.claude-v2", 100, 0.1, 0.9, 0, zap.NewNop())
	assert.Equal(t, "bedrock:anthropic.claude-v2", client.Name())
}
