package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/paulofranca-ai/canaldarkgen/internal/project"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
	"nova-pro":  "us.amazon.nova-pro-v1:0",
}

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// NovaGenerator uses Amazon Nova through the Bedrock Converse API. It
// authenticates with the ambient AWS credentials, not a vault key.
type NovaGenerator struct {
	model  string
	client converseAPI
}

func NewNovaGenerator(model string, awsCfg aws.Config) *NovaGenerator {
	return &NovaGenerator{
		model:  model,
		client: bedrockruntime.NewFromConfig(awsCfg),
	}
}

func (g *NovaGenerator) modelID() string {
	if id := novaModels[g.model]; id != "" {
		return id
	}
	return novaModels["nova-lite"]
}

func (g *NovaGenerator) GenerateIdeas(ctx context.Context, t project.VideoType) (Idea, error) {
	return retry(ctx, "Bedrock", func() (Idea, error) {
		text, err := g.converse(ctx, ideaSystemPrompt, buildIdeaPrompt(t), 1024)
		if err != nil {
			return Idea{}, err
		}
		idea, err := parseIdea(text)
		if err != nil {
			return Idea{}, invalidReply("Bedrock", err)
		}
		return idea, nil
	})
}

func (g *NovaGenerator) GenerateScript(ctx context.Context, cfg project.Config, research string) ([]project.SceneDraft, error) {
	return retry(ctx, "Bedrock", func() ([]project.SceneDraft, error) {
		text, err := g.converse(ctx, scriptSystemPrompt, buildScriptPrompt(cfg, research), maxTokensForScenes(cfg.SceneCount))
		if err != nil {
			return nil, err
		}
		scenes, err := parseScenes(text)
		if err != nil {
			return nil, invalidReply("Bedrock", err)
		}
		return scenes, nil
	})
}

func (g *NovaGenerator) converse(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	resp, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.modelID()),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: user},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(temperature),
		},
	})
	if err != nil {
		return "", classifyBedrockError(err)
	}
	text := extractNovaText(resp)
	if text == "" {
		return "", &ServiceError{Kind: KindTransient, Service: "Bedrock", Message: "empty response from Bedrock"}
	}
	return text, nil
}

func classifyBedrockError(err error) error {
	kind := KindUnknown
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			kind = KindCredentialMissing
		case "ThrottlingException", "ServiceUnavailableException", "ModelNotReadyException", "InternalServerException":
			kind = KindTransient
		}
	}
	msg := fmt.Sprintf("Bedrock Converse error: %v", err)
	if kind == KindCredentialMissing {
		msg = "Bedrock Converse error: AWS credentials rejected (check Access Key)"
	}
	return &ServiceError{Kind: kind, Service: "Bedrock", Message: msg, Err: err}
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
