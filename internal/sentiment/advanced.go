package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/vnote-labs/coach/internal/llm"
)

// MinAdvancedLength is the shortest text worth sending to the model scorer.
const MinAdvancedLength = 12

// ErrTooShort is returned for text under MinAdvancedLength characters.
var ErrTooShort = errors.New("text too short for advanced sentiment")

// Advanced is a slower, model-backed scorer whose results patch turns after
// they have been inserted.
type Advanced interface {
	Classify(ctx context.Context, text string) (float64, error)
}

// AdvancedFunc adapts a function to Advanced.
type AdvancedFunc func(ctx context.Context, text string) (float64, error)

// Classify implements Advanced.
func (f AdvancedFunc) Classify(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Classification is the structured output requested from the model.
type Classification struct {
	Label string  `json:"label" jsonschema:"enum=positive,enum=negative,enum=neutral"`
	Score float64 `json:"score" jsonschema:"minimum=0,maximum=1"`
}

var classificationSchema = llm.GenerateSchema[Classification]()

const classifyInstructions = `Classify the sentiment of the user's sales-call utterance.
Return JSON with "label" (positive, negative or neutral) and "score", your confidence between 0 and 1.`

// OpenAIScorer classifies sentiment through an OpenAI-compatible Responses API.
type OpenAIScorer struct {
	client *openai.Client
	model  string
}

// NewOpenAIScorer builds an OpenAIScorer. An empty baseURL uses the SDK default.
func NewOpenAIScorer(apiKey, baseURL, model string) *OpenAIScorer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIScorer{client: &client, model: model}
}

// Classify implements Advanced.
func (s *OpenAIScorer) Classify(ctx context.Context, text string) (float64, error) {
	text = strings.TrimSpace(text)
	if len(text) < MinAdvancedLength {
		return 0, ErrTooShort
	}
	if s.model == "" {
		return 0, errors.New("openai scorer: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(64),
		Instructions:    openai.String(classifyInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "SentimentClassification",
					Schema:      classificationSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Utterance sentiment JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("classifying sentiment: %w", err)
	}

	out, err := llm.ExtractJSON(resp.OutputText(), validateClassification)
	if err != nil {
		return 0, fmt.Errorf("decoding sentiment classification: %w", err)
	}
	return Normalize(out), nil
}

// Normalize maps a label/confidence pair onto the signed polarity scale.
func Normalize(c Classification) float64 {
	label := strings.ToLower(c.Label)
	switch {
	case strings.Contains(label, "neg"):
		return Round4(-c.Score)
	case strings.Contains(label, "pos"):
		return Round4(c.Score)
	default:
		return 0
	}
}

func validateClassification(c Classification) error {
	if c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("score %v out of range", c.Score)
	}
	return nil
}
