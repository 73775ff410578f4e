package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// BedrockProvider implements llm.Provider over AWS Bedrock's Converse API,
// following the same synchronous-wrapper/retry shape as the other bindings.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// BedrockConfig configures a BedrockProvider.
type BedrockConfig struct {
	Region       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewBedrockProvider builds a provider using the AWS default credential
// chain (environment, shared config, EC2/ECS role), scoped to Region.
func NewBedrockProvider(ctx context.Context, config BedrockConfig) (*BedrockProvider, error) {
	if strings.TrimSpace(config.Region) == "" {
		return nil, errors.New("bedrock: region is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: could not load AWS config: %w", err)
	}

	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(cfg),
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		defaultModel: config.DefaultModel,
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

// Models lists the Bedrock-hosted model IDs this binding recognizes.
func (p *BedrockProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Provider: "bedrock", ContextSize: 200000, SupportsVision: true},
		{ID: "amazon.titan-text-premier-v1:0", Provider: "bedrock", ContextSize: 32000, SupportsVision: false},
	}
}

// Supports reports feature support against the static Models list.
func (p *BedrockProvider) Supports(model string, feature llm.Feature) bool {
	if feature != llm.FeatureText && feature != llm.FeatureVision {
		return false
	}
	for _, m := range p.Models() {
		if m.ID == model {
			return feature == llm.FeatureText || m.SupportsVision
		}
	}
	return false
}

// Complete sends one Converse request, retrying any failure with linear
// backoff up to maxRetries attempts; errors are not classified as
// retryable or permanent.
func (p *BedrockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: convertBedrockMessages(req),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokensOrDefault(req.MaxTokens))),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}

	var output *bedrockruntime.ConverseOutput
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		output, err = p.client.Converse(ctx, input)
		if err == nil {
			break
		}
		if attempt == p.maxRetries {
			return llm.CompletionResponse{}, fmt.Errorf("bedrock: %w", err)
		}
		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}
	}

	msgOutput, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return llm.CompletionResponse{}, errors.New("bedrock: response carried no message output")
	}

	var text strings.Builder
	for _, block := range msgOutput.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(tb.Value)
		}
	}

	resp := llm.CompletionResponse{
		Messages: []llm.CompletionMessage{{Role: "assistant", Content: text.String()}},
	}
	if output.Usage != nil {
		resp.InputTokens = int(aws.ToInt32(output.Usage.InputTokens))
		resp.OutputTokens = int(aws.ToInt32(output.Usage.OutputTokens))
	}
	return resp, nil
}

func convertBedrockMessages(req llm.CompletionRequest) []types.Message {
	out := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return out
}
