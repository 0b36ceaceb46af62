package microflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds one generation request.
const DefaultTimeout = 20 * time.Second

// Telemetry event names.
const (
	EventSuggestionFallback = "suggestion_fallback"
	EventSuggestionAccepted = "suggestion_accepted"
)

var diagnosticQuestions = map[Kind]string{
	KindStructure:    "Do students already have background knowledge on this topic, or are they starting fresh?",
	KindDeliverables: "How should students show what they learned: a presentation, a public product, or something else?",
}

var guidance = map[Kind]string{
	KindStructure: "Phases are the ordered steps of the learning journey. Each phase needs a name and at least one activity. " +
		"Answer the question in your own words, or say \"suggest all\" and I will draft every phase. Say \"nevermind\" to start over.",
	KindDeliverables: "Deliverables are the milestones students reach, the artifacts they produce and the criteria used to assess them. " +
		"Answer the question in your own words, or say \"suggest all\" and I will draft everything. Say \"nevermind\" to start over.",
}

const reviewHelp = "Reply \"accept\" to keep what you see, \"customize: your text\" to change it, " +
	"\"show all\" to see everything at once, or \"nevermind\" to discard the suggestions."

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each generation request.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTracker reports fallbacks and acceptances as telemetry.
func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// Engine runs one micro-flow conversation for one project and kind.
// Suggestions are only written when the whole set has been accepted.
type Engine struct {
	kind    Kind
	gen     Generator
	sink    Sink
	tracker Tracker
	logger  *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	substep    Substep
	mode       Mode
	status     SuggestionStatus
	answers    []string
	suggestion *Suggestion
	cursor     int
	token      uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewEngine creates an engine in the diagnostic substep. A nil generator always uses fallback content.
func NewEngine(kind Kind, gen Generator, sink Sink, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		kind:    kind,
		gen:     gen,
		sink:    sink,
		logger:  logger.With("kind", kind),
		timeout: DefaultTimeout,
		substep: SubstepDiagnostic,
		mode:    ModeProgressive,
		status:  StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kind returns the content kind this engine produces.
func (e *Engine) Kind() Kind {
	return e.kind
}

// Start returns the opening diagnostic question.
func (e *Engine) Start() Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replyLocked("", diagnosticQuestions[e.kind])
}

// Snapshot returns the current state without advancing it.
func (e *Engine) Snapshot() Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presentLocked("")
}

// Respond classifies input and advances the conversation.
func (e *Engine) Respond(input string) (Reply, error) {
	intent := Classify(input)

	e.mu.Lock()
	defer e.mu.Unlock()

	if intent == IntentCancel {
		e.resetLocked()
		return e.replyLocked(intent, "Okay, nothing was saved. "+diagnosticQuestions[e.kind]), nil
	}
	if intent == IntentHelp {
		r := e.presentLocked(intent)
		r.Help = true
		if e.substep == SubstepReviewing {
			r.Message = reviewHelp
		} else {
			r.Message = guidance[e.kind]
		}
		return r, nil
	}

	switch e.substep {
	case SubstepDiagnostic:
		return e.diagnosticLocked(intent, input)
	case SubstepSuggesting:
		return e.replyLocked(intent, "Still drafting suggestions."), nil
	case SubstepReviewing:
		return e.reviewLocked(intent, input)
	}
	return e.replyLocked(intent, ""), nil
}

func (e *Engine) diagnosticLocked(intent Intent, input string) (Reply, error) {
	switch intent {
	case IntentEmpty:
		return e.replyLocked(intent, diagnosticQuestions[e.kind]), nil
	case IntentSuggestAll:
		e.mode = ModeBulk
	default:
		e.mode = ModeProgressive
		e.answers = append(e.answers, normalizeKeepCase(input))
	}
	if err := e.beginLocked(); err != nil {
		return Reply{}, err
	}
	return e.replyLocked(intent, "Drafting suggestions."), nil
}

func (e *Engine) reviewLocked(intent Intent, input string) (Reply, error) {
	units := e.suggestion.Units()
	switch intent {
	case IntentShowAll, IntentSuggestAll:
		e.mode = ModeBulk
		return e.presentLocked(intent), nil

	case IntentCustomize:
		idx, text := customization(input)
		target := e.cursor
		if idx > 0 {
			target = idx - 1
		} else if e.mode == ModeBulk {
			return e.withMessage(intent, "Say which one to change, for example \"customize 2: your text\"."), nil
		}
		if text == "" {
			return e.withMessage(intent, "Add your version after a colon, for example \"customize: your text\"."), nil
		}
		if !e.suggestion.customize(target, text) {
			return e.withMessage(intent, fmt.Sprintf("There is no item %d; choose 1 to %d.", target+1, len(units))), nil
		}
		return e.withMessage(intent, "Updated. "+reviewHelp), nil

	case IntentAccept:
		if e.mode == ModeProgressive && e.cursor+1 < len(units) {
			e.cursor++
			return e.presentLocked(intent), nil
		}
		return e.acceptLocked(intent)
	}
	return e.withMessage(intent, reviewHelp), nil
}

func (e *Engine) acceptLocked(intent Intent) (Reply, error) {
	s := e.suggestion
	if err := e.sink.DebouncedSave(s.Patch()); err != nil {
		return Reply{}, fmt.Errorf("saving accepted %s: %w", e.kind, err)
	}

	props := map[string]any{
		"kind":   string(e.kind),
		"source": string(s.Source),
		"units":  len(s.Units()),
		"mode":   string(e.mode),
	}
	if draft := e.sink.CurrentDraft(); draft != nil {
		props["projectId"] = draft.ID
	}
	e.track(EventSuggestionAccepted, props)
	e.logger.Info("suggestions accepted", "source", s.Source, "mode", e.mode)

	r := e.replyLocked(intent, "Saved. Review the stage and complete it when you are ready.")
	r.Substep = SubstepAccepted
	r.Units = s.Units()
	r.Total = len(r.Units)
	e.substep = SubstepDiagnostic
	e.mode = ModeProgressive
	e.answers = nil
	e.suggestion = nil
	e.cursor = 0
	return r, nil
}

func (e *Engine) beginLocked() error {
	draft := e.sink.CurrentDraft()
	if draft == nil {
		return ErrNoDraft
	}
	req := Request{Kind: e.kind, Narrative: draft.Narrative(), Answers: append([]string(nil), e.answers...)}

	e.token++
	token := e.token
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.substep = SubstepSuggesting
	e.status = StatusRefining
	e.suggestion = nil
	e.cursor = 0

	go e.generate(ctx, cancel, token, done, req)
	return nil
}

func (e *Engine) generate(ctx context.Context, cancel context.CancelFunc, token uint64, done chan struct{}, req Request) {
	defer close(done)
	defer cancel()

	var (
		s   *Suggestion
		err error
	)
	if e.gen == nil {
		err = errors.New("no generator configured")
	} else {
		s, err = e.gen.Generate(ctx, req)
		if err == nil && s != nil {
			s = s.clone()
			s.Kind = e.kind
			s.Source = SourceGenerated
		}
		if err == nil && !s.valid() {
			err = ErrEmptySuggestion
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token {
		// Cancelled or superseded while in flight.
		return
	}

	status := StatusEnhanced
	if err != nil {
		gerr := &GenerationError{Kind: e.kind, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
		e.logger.Warn("generation failed, using fallback content", "error", gerr)
		s = Fallback(req)
		status = StatusFallback
		props := map[string]any{
			"kind":    string(e.kind),
			"timeout": gerr.Timeout,
			"error":   err.Error(),
		}
		if draft := e.sink.CurrentDraft(); draft != nil {
			props["projectId"] = draft.ID
		}
		e.track(EventSuggestionFallback, props)
	}

	e.suggestion = s
	e.status = status
	e.substep = SubstepReviewing
	e.cursor = 0
	e.cancel = nil
}

// Await blocks until an in-flight generation settles or ctx ends, then returns the current state.
func (e *Engine) Await(ctx context.Context) (Reply, error) {
	e.mu.Lock()
	done := e.done
	suggesting := e.substep == SubstepSuggesting
	e.mu.Unlock()

	if suggesting && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		}
	}
	return e.Snapshot(), nil
}

// Reset discards pending suggestions and returns to the diagnostic substep.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.token++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.substep = SubstepDiagnostic
	e.mode = ModeProgressive
	e.status = StatusIdle
	e.answers = nil
	e.suggestion = nil
	e.cursor = 0
}

func (e *Engine) replyLocked(intent Intent, msg string) Reply {
	return Reply{
		Kind:    e.kind,
		Substep: e.substep,
		Mode:    e.mode,
		Status:  e.status,
		Intent:  intent,
		Message: msg,
	}
}

func (e *Engine) withMessage(intent Intent, msg string) Reply {
	r := e.presentLocked(intent)
	r.Message = msg
	return r
}

// presentLocked renders the reviewable units: all of them in bulk mode, the current one otherwise.
func (e *Engine) presentLocked(intent Intent) Reply {
	r := e.replyLocked(intent, "")
	switch e.substep {
	case SubstepDiagnostic:
		r.Message = diagnosticQuestions[e.kind]
	case SubstepSuggesting:
		r.Message = "Still drafting suggestions."
	case SubstepReviewing:
		units := e.suggestion.Units()
		r.Total = len(units)
		r.Cursor = e.cursor
		if e.mode == ModeBulk {
			r.Units = units
		} else if e.cursor < len(units) {
			r.Units = units[e.cursor : e.cursor+1]
		}
		r.Message = reviewHelp
	}
	return r
}

func (e *Engine) track(name string, props map[string]any) {
	if e.tracker == nil {
		return
	}
	e.tracker.Track(name, props)
}
