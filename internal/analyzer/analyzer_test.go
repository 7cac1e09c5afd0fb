package analyzer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/medprev-labs/medy-bot/pkg/logging"
)

type stubRekognition struct {
	lines []string
	err   error
	bytes []byte
}

func (s *stubRekognition) DetectText(ctx context.Context, params *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.bytes = params.Image.Bytes

	detections := make([]rektypes.TextDetection, 0, len(s.lines)*2)
	for _, line := range s.lines {
		detections = append(detections, rektypes.TextDetection{
			Type:         rektypes.TextTypesLine,
			DetectedText: aws.String(line),
		})
		// Rekognition also emits WORD detections; they must be ignored.
		for _, word := range strings.Fields(line) {
			detections = append(detections, rektypes.TextDetection{
				Type:         rektypes.TextTypesWord,
				DetectedText: aws.String(word),
			})
		}
	}
	return &rekognition.DetectTextOutput{TextDetections: detections}, nil
}

type stubBedrock struct {
	reply  string
	err    error
	prompt string
}

func (s *stubBedrock) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(params.Messages) == 1 {
		if text, ok := params.Messages[0].Content[0].(*brtypes.ContentBlockMemberText); ok {
			s.prompt = text.Value
		}
	}
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: s.reply},
				},
			},
		},
	}, nil
}

func imageServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractor_Analyze(t *testing.T) {
	rek := &stubRekognition{lines: []string{"Pedido médico", "Glicose", "Hemograma completo"}}
	bedrock := &stubBedrock{reply: "- Glicose\n- Hemograma completo\n"}
	srv := imageServer(t, []byte("jpeg-bytes"))

	e := NewExtractor(rek, bedrock, "amazon.titan-tg1-large", logging.Default())
	exams, err := e.Analyze(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if string(rek.bytes) != "jpeg-bytes" {
		t.Fatalf("rekognition got wrong bytes: %q", rek.bytes)
	}
	if !strings.Contains(bedrock.prompt, "Glicose") || !strings.Contains(bedrock.prompt, "Hemograma completo") {
		t.Fatalf("prompt should carry the detected lines: %q", bedrock.prompt)
	}
	if len(exams) != 2 || exams[0] != "Glicose" || exams[1] != "Hemograma completo" {
		t.Fatalf("unexpected exams: %v", exams)
	}
}

func TestExtractor_NoTextShortCircuitsBedrock(t *testing.T) {
	rek := &stubRekognition{}
	bedrock := &stubBedrock{reply: "should not be called"}
	srv := imageServer(t, []byte("jpeg-bytes"))

	e := NewExtractor(rek, bedrock, "amazon.titan-tg1-large", logging.Default())
	exams, err := e.Analyze(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(exams) != 0 {
		t.Fatalf("expected no exams, got %v", exams)
	}
	if bedrock.prompt != "" {
		t.Fatal("bedrock must not be called when no text was detected")
	}
}

func TestExtractor_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	e := NewExtractor(&stubRekognition{}, &stubBedrock{}, "amazon.titan-tg1-large", logging.Default())
	if _, err := e.Analyze(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for a missing image")
	}
}

func TestExtractor_BedrockFailure(t *testing.T) {
	rek := &stubRekognition{lines: []string{"Glicose"}}
	bedrock := &stubBedrock{err: errors.New("throttled")}
	srv := imageServer(t, []byte("jpeg-bytes"))

	e := NewExtractor(rek, bedrock, "amazon.titan-tg1-large", logging.Default())
	if _, err := e.Analyze(context.Background(), srv.URL); err == nil {
		t.Fatal("expected bedrock error to propagate")
	}
}

func TestParseExamList(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "bullets with chatter",
			in:   "Claro! Aqui está:\n- Glicose\n- Raio X da face\nEspero ter ajudado.",
			want: []string{"Glicose", "Raio X da face"},
		},
		{
			name: "indented bullets",
			in:   "  - Hemoglobina\n\t- Tomografia articulações",
			want: []string{"Hemoglobina", "Tomografia articulações"},
		},
		{
			name: "placeholder lines dropped",
			in:   "- Nenhum exame encontrado",
			want: nil,
		},
		{
			name: "no bullets",
			in:   "Não consegui identificar exames.",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseExamList(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}
