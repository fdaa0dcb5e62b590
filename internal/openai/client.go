// Package openai provides the external embedding and text-generation
// capabilities with support for both Azure OpenAI (primary) and the OpenAI
// platform (fallback).
package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"cadence/internal/config"
)

// EmbeddingDimensions is the fixed vector dimension stored by the pipeline
const EmbeddingDimensions = 1536

// Client wraps the OpenAI client with Azure support and fallback capability
type Client struct {
	primary      *openai.Client
	fallback     *openai.Client
	gptModel     string
	embedModel   openai.EmbeddingModel
	providerName string
}

// NewClient creates a client with Azure as primary and OpenAI as fallback
func NewClient(cfg *config.Config) (*Client, error) {
	client := &Client{}

	if cfg.UseAzureOpenAI() {
		azureConfig := openai.DefaultAzureConfig(cfg.AzureOpenAIKey, cfg.AzureOpenAIEndpoint)
		client.primary = openai.NewClientWithConfig(azureConfig)
		client.gptModel = cfg.AzureOpenAIGPTDeployment
		client.embedModel = openai.EmbeddingModel(cfg.AzureOpenAIEmbeddingDeployment)
		client.providerName = "Azure OpenAI"

		fmt.Printf("[OPENAI_CLIENT] Primary provider: Azure OpenAI (endpoint: %s)\n", cfg.AzureOpenAIEndpoint)
	}

	if cfg.HasOpenAIFallback() {
		fallback := openai.NewClient(cfg.OpenAIKey)
		if client.primary == nil {
			client.primary = fallback
			client.gptModel = string(openai.GPT4oMini)
			client.embedModel = openai.SmallEmbedding3
			client.providerName = "OpenAI"
			fmt.Printf("[OPENAI_CLIENT] Primary provider: OpenAI (Azure not configured)\n")
		} else {
			client.fallback = fallback
			fmt.Printf("[OPENAI_CLIENT] Fallback provider: OpenAI\n")
		}
	}

	if client.primary == nil {
		return nil, fmt.Errorf("no OpenAI provider configured: set AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_KEY or OPENAI_API_KEY")
	}

	return client, nil
}

// CreateEmbeddings generates fixed-dimension embeddings for the given texts
func (c *Client) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.primary.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embedModel,
	})

	if err != nil && c.fallback != nil {
		fmt.Printf("[OPENAI_CLIENT] Primary failed, trying fallback: %v\n", err)
		resp, err = c.fallback.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.SmallEmbedding3,
		})
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %v", err)
		}
		fmt.Printf("[OPENAI_CLIENT] Fallback succeeded\n")
	} else if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}
	return embeddings, nil
}

// CreateChatCompletion generates a chat completion (used for insight text)
func (c *Client) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.gptModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := c.primary.CreateChatCompletion(ctx, req)
	if err != nil && c.fallback != nil {
		fmt.Printf("[OPENAI_CLIENT] Primary chat failed, trying fallback: %v\n", err)
		req.Model = string(openai.GPT4oMini)
		resp, err = c.fallback.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %v", err)
		}
		fmt.Printf("[OPENAI_CLIENT] Fallback chat succeeded\n")
	} else if err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetProviderName returns the current primary provider name
func (c *Client) GetProviderName() string {
	return c.providerName
}

// GetGPTModel returns the GPT model/deployment name being used
func (c *Client) GetGPTModel() string {
	return c.gptModel
}

// GetEmbeddingModel returns the embedding model/deployment name being used
func (c *Client) GetEmbeddingModel() string {
	return string(c.embedModel)
}
