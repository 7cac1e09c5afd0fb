// Package analyzer turns a photo of a medical order into a list of exam
// names. Rekognition reads the raw text off the image; Bedrock filters that
// text down to the exams.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

const (
	// Rekognition caps image bytes at 5 MiB for DetectText.
	maxImageBytes = 5 << 20

	filterMaxTokens   = 512
	filterTemperature = 0
	filterTopP        = 0.9
)

const filterPromptTemplate = `Baseado no seguinte texto, organize em uma lista apenas os exames médicos. Não fale nada além dessa lista
   Exemplo:
    - Glicose
    - Hemoglobina
    - Tomografia articulações
    - Raio X da face

  Leitura do pedido médico:
  %s
  `

type rekognitionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Extractor implements the intake image analyzer against AWS Rekognition and
// Bedrock.
type Extractor struct {
	rekognition rekognitionAPI
	bedrock     bedrockConverseAPI
	modelID     string
	httpClient  *http.Client
	logger      *logging.Logger
}

// ExtractorOption customizes the extractor.
type ExtractorOption func(*Extractor)

// WithHTTPClient overrides the client used to fetch image bytes.
func WithHTTPClient(client *http.Client) ExtractorOption {
	return func(e *Extractor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// NewExtractor wires the OCR and filtering clients. modelID names the Bedrock
// model used to pick exam names out of the detected text.
func NewExtractor(rek rekognitionAPI, bedrock bedrockConverseAPI, modelID string, logger *logging.Logger, opts ...ExtractorOption) *Extractor {
	if rek == nil {
		panic("analyzer: rekognition client cannot be nil")
	}
	if bedrock == nil {
		panic("analyzer: bedrock client cannot be nil")
	}
	if modelID == "" {
		panic("analyzer: bedrock model id cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Extractor{
		rekognition: rek,
		bedrock:     bedrock,
		modelID:     modelID,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze fetches the image, OCRs it, and returns the exam names the model
// identified. An order with no recognizable exams yields an empty slice.
func (e *Extractor) Analyze(ctx context.Context, imageURL string) ([]string, error) {
	imageBytes, err := e.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	lines, err := e.detectText(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	return e.filterExams(ctx, lines)
}

func (e *Extractor) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("analyzer: invalid image url: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer: failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer: image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("analyzer: failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, errors.New("analyzer: image exceeds 5 MiB limit")
	}
	return data, nil
}

func (e *Extractor) detectText(ctx context.Context, imageBytes []byte) ([]string, error) {
	out, err := e.rekognition.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &rektypes.Image{Bytes: imageBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: text detection failed: %w", err)
	}

	lines := make([]string, 0, len(out.TextDetections))
	for _, detection := range out.TextDetections {
		// LINE detections already cover the WORD detections beneath them.
		if detection.Type != rektypes.TextTypesLine {
			continue
		}
		if text := aws.ToString(detection.DetectedText); text != "" {
			lines = append(lines, text)
		}
	}
	return lines, nil
}

func (e *Extractor) filterExams(ctx context.Context, lines []string) ([]string, error) {
	prompt := fmt.Sprintf(filterPromptTemplate, strings.Join(lines, "\n"))

	out, err := e.bedrock.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.modelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(filterMaxTokens),
			Temperature: aws.Float32(filterTemperature),
			TopP:        aws.Float32(filterTopP),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: exam filtering failed: %w", err)
	}

	text, err := converseOutputText(out)
	if err != nil {
		return nil, err
	}
	return parseExamList(text), nil
}

func converseOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("analyzer: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("analyzer: bedrock response did not include a message output")
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	return builder.String(), nil
}

// parseExamList pulls the "- exam" bullet lines out of the model output,
// preserving their order. Placeholder lines the model sometimes emits when it
// finds nothing are dropped.
func parseExamList(text string) []string {
	var exams []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if name == "" || isNotFoundPlaceholder(name) {
			continue
		}
		exams = append(exams, name)
	}
	return exams
}

func isNotFoundPlaceholder(name string) bool {
	switch strings.ToLower(name) {
	case "nenhum", "nenhum exame encontrado", "não encontrado", "nao encontrado", "not found":
		return true
	}
	return false
}
