package augment

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

type AzureOpenAIProvider struct {
	client       *azopenai.Client
	deploymentID string
}

func NewAzureOpenAIProvider(endpoint, apiKey, deploymentID string) (*AzureOpenAIProvider, error) {
	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %v", err)
	}
	return &AzureOpenAIProvider{
		client:       client,
		deploymentID: deploymentID,
	}, nil
}

func (c *AzureOpenAIProvider) Name() string { return "azure-openai" }

func (c *AzureOpenAIProvider) Assess(ctx context.Context, req Request) (Assessment, error) {
	resp, err := c.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Temperature:    to.Ptr[float32](0),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestSystemMessage{
					Content: azopenai.NewChatRequestSystemMessageContent("You audit infrastructure for compliance and reply only with the requested JSON object."),
				},
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(buildPrompt(req)),
				},
			},
		},
		nil,
	)
	if err != nil {
		return Assessment{}, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return Assessment{}, fmt.Errorf("no completion received from LLM")
	}
	return parseAssessment(*resp.Choices[0].Message.Content)
}
