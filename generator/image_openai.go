package generator

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultImageModel = "dall-e-3"

// OpenAIImager implements ImageClient with the images endpoint of the same SDK.
type OpenAIImager struct {
	Model string
	Opts  []option.RequestOption
}

func NewOpenAIImagerFromConfig(cfg *LLMSettings) (*OpenAIImager, error) {
	opts, err := openAIOptions(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.ImageModel
	if model == "" {
		model = defaultImageModel
	}
	return &OpenAIImager{Model: model, Opts: opts}, nil
}

func (o *OpenAIImager) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("image prompt is empty")
	}
	client := openai.NewClient(o.Opts...)

	params := openai.ImageGenerateParams{
		Prompt: BuildImagePrompt(prompt),
		Model:  openai.ImageModel(o.Model),
		N:      openai.Int(1),
	}
	// gpt-image models always answer with base64 and reject response_format.
	if strings.HasPrefix(o.Model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
		params.Size = openai.ImageGenerateParamsSize1792x1024
	}

	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", errors.New("openai: no image returned")
	}
	img := resp.Data[0]
	if img.B64JSON != "" {
		return "data:image/png;base64," + img.B64JSON, nil
	}
	if img.URL != "" {
		return img.URL, nil
	}
	return "", errors.New("openai: image has neither data nor url")
}
