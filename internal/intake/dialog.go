// Package intake defines the purchase intake conversation: greet the user,
// collect their location, read the medical order from a photo, link the
// matched exams into a scheduling cart, and offer a human handoff.
package intake

import (
	"context"
	"fmt"

	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/internal/observability/metrics"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

const (
	// PurchaseDialogID is the root dialog started for every new conversation.
	PurchaseDialogID = "purchase"
	// ImageIntakeDialogID collects one medical order image on behalf of the
	// purchase dialog.
	ImageIntakeDialogID = "image-intake"

	optionLocation = "location"
)

// ImageAnalyzer extracts exam names from a medical order image.
type ImageAnalyzer interface {
	// Analyze returns the exam names found in the image, in reading order.
	// An image with no recognizable exams yields an empty slice, not an error.
	Analyze(ctx context.Context, imageURL string) ([]string, error)
}

// CartLinkBuilder resolves exam names into a pre-filled scheduling cart URL.
type CartLinkBuilder interface {
	BuildURL(ctx context.Context, examNames []string) (string, error)
}

// Deps carries the collaborators the intake dialogs call out to.
type Deps struct {
	Analyzer ImageAnalyzer
	Cart     CartLinkBuilder
	Logger   *logging.Logger
	Metrics  *metrics.DialogMetrics
}

type intake struct {
	analyzer ImageAnalyzer
	cart     CartLinkBuilder
	logger   *logging.Logger
	metrics  *metrics.DialogMetrics
}

// Register adds the purchase and image intake dialogs to the registry.
func Register(registry *dialog.Registry, deps Deps) error {
	if registry == nil {
		panic("intake: registry cannot be nil")
	}
	if deps.Analyzer == nil {
		panic("intake: image analyzer cannot be nil")
	}
	if deps.Cart == nil {
		panic("intake: cart link builder cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	in := &intake{
		analyzer: deps.Analyzer,
		cart:     deps.Cart,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}

	if err := registry.Register(&dialog.Dialog{
		ID: PurchaseDialogID,
		Steps: []dialog.StepFunc{
			in.requestLocation,
			in.beginImageIntake,
			in.analyzeImage,
			in.summarize,
		},
	}); err != nil {
		return fmt.Errorf("intake: %w", err)
	}

	if err := registry.Register(&dialog.Dialog{
		ID: ImageIntakeDialogID,
		Steps: []dialog.StepFunc{
			in.promptImage,
			in.returnImage,
		},
	}); err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	return nil
}

// requestLocation greets the user and suspends on a location prompt.
func (in *intake) requestLocation(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	if sc.Profile != nil && sc.Profile.Greeted {
		sc.SendText(phraseWelcomeBack(sc.Profile.Name))
	} else {
		sc.SendText(phraseWelcome(profileName(sc)))
		if sc.Profile != nil {
			sc.Profile.Greeted = true
		}
	}

	return dialog.Prompt(dialog.PromptLocation, dialog.OutboundActivity{
		Kind: dialog.ActivityLocationRequest,
		Text: phraseLocationRequest(),
	}), nil
}

// beginImageIntake stashes the location reply and hands control to the image
// intake child dialog.
func (in *intake) beginImageIntake(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	sc.Options[optionLocation] = sc.Result.Text
	return dialog.Begin(ImageIntakeDialogID, nil), nil
}

// analyzeImage runs OCR over the collected image, lists the exams found, and
// asks whether to hand the conversation to a human.
func (in *intake) analyzeImage(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	att := sc.Result.Attachment
	if att == nil {
		// The image prompt validates replies, so a missing attachment means the
		// child died mid-flight and the user was already told. End quietly.
		return dialog.End(dialog.StepResult{}), nil
	}

	procedures, err := in.analyzer.Analyze(ctx, att.ContentURL)
	if err != nil {
		in.metrics.ObserveExternalFailure("analyzer")
		return dialog.StepSignal{}, fmt.Errorf("intake: image analysis failed: %w", err)
	}
	if len(procedures) == 0 {
		sc.SendText(phraseExamsNotFound())
		return dialog.End(dialog.StepResult{}), nil
	}

	sc.SendText(phraseExamsFound(procedures))

	cartURL, err := in.cart.BuildURL(ctx, procedures)
	if err != nil {
		in.metrics.ObserveExternalFailure("cart")
		return dialog.StepSignal{}, fmt.Errorf("intake: cart link build failed: %w", err)
	}
	sc.SendText(phraseScheduleLink(cartURL))

	return dialog.Prompt(dialog.PromptConfirm, dialog.OutboundActivity{
		Kind: dialog.ActivityChoice,
		Text: phraseConfirmHandoff(),
		Options: []dialog.ChoiceOption{
			{Title: "Sim", Value: "true"},
			{Title: "Não", Value: "false"},
		},
	}), nil
}

// summarize closes the dialog, escalating to a human when the user confirmed.
func (in *intake) summarize(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	if sc.Result.Confirmed {
		sc.SendText(phraseHandoff(profileName(sc)))
		sc.Send(dialog.OutboundActivity{Kind: dialog.ActivityHandoff})
	} else {
		sc.SendText(phraseEndConversation())
	}
	return dialog.End(dialog.StepResult{}), nil
}

func (in *intake) promptImage(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	return dialog.Prompt(dialog.PromptImage, dialog.Text(phraseImagePrompt())), nil
}

// returnImage hands the validated image back to the parent dialog.
func (in *intake) returnImage(ctx context.Context, sc *dialog.StepContext) (dialog.StepSignal, error) {
	return dialog.End(sc.Result), nil
}

func profileName(sc *dialog.StepContext) string {
	if sc.Profile != nil && sc.Profile.Name != "" {
		return sc.Profile.Name
	}
	return sc.Input.UserName
}
