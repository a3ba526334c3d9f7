package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/telemetry"
)

// ProviderFamily classifies how aggressively a provider can be forced
// to call a tool. Each concrete adapter package declares its own
// family and applies the corresponding ToolChoiceMode before calling
// the underlying SDK.
type ProviderFamily string

const (
	// FamilyStrictRequired providers (anthropicclient) forbid a
	// text-only reply outright once tools are present.
	FamilyStrictRequired ProviderFamily = "strict_required"
	// FamilyAutoButMustCall providers (openaiclient) use a
	// provider-native "required" tool_choice value.
	FamilyAutoButMustCall ProviderFamily = "auto_but_must_call"
	// FamilyWeak providers (geminiclient) only support a function-calling
	// mode hint and may reject it outright, requiring the two-step
	// degradation path below.
	FamilyWeak ProviderFamily = "weak"
)

// degradeStep names one attempt in the weak-provider degradation path,
// used only for logging.
type degradeStep string

const (
	stepForced       degradeStep = "forced_tool_choice"
	stepNoToolChoice degradeStep = "no_tool_choice"
	stepNoTools      degradeStep = "no_tools"
)

// RejectsToolChoice reports whether err is the kind of 400-class
// provider rejection that should trigger the weak-provider degradation
// path, rather than a transport failure that should simply be retried
// by the caller's own backoff.
type RejectsToolChoice func(err error) bool

// WithDegradation runs attempt against req for a FamilyWeak provider,
// retrying once with the tool-choice field cleared and once with tools
// removed entirely if the provider rejects the forced mode, with every
// attempt logged.
func WithDegradation(ctx context.Context, req ChatRequest, rejects RejectsToolChoice, attempt func(context.Context, ChatRequest) (*ChatResponse, error)) (*ChatResponse, error) {
	log := logging.For(logging.CategoryLLM)

	ctx, span := telemetry.StartSpan(ctx, "llm.chat_with_degradation")
	defer span.End()

	log.Debug("llm tool-choice attempt", zap.String("step", string(stepForced)))
	resp, err := attempt(ctx, req)
	telemetry.RecordAttempt(span, 1, string(stepForced), err)
	if err == nil || !rejects(err) {
		return resp, err
	}

	log.Warn("llm provider rejected forced tool choice, degrading", zap.String("step", string(stepNoToolChoice)), zap.Error(err))
	degraded := req
	degraded.ToolChoice = ToolChoiceAuto
	resp, err = attempt(ctx, degraded)
	telemetry.RecordAttempt(span, 2, string(stepNoToolChoice), err)
	if err == nil || !rejects(err) {
		return resp, err
	}

	log.Warn("llm provider rejected tool-choice-free request, dropping tools", zap.String("step", string(stepNoTools)), zap.Error(err))
	withoutTools := req
	withoutTools.Tools = nil
	withoutTools.ToolChoice = ""
	resp, err = attempt(ctx, withoutTools)
	telemetry.RecordAttempt(span, 3, string(stepNoTools), err)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "provider rejected the request at every degradation step", false)
	}
	return resp, nil
}

// ErrNoChoices indicates a provider returned zero completion choices,
// a malformed response no adapter can translate.
var ErrNoChoices = errors.New("llm: provider returned no choices")
