// Package autoupdate drives the LLM-backed outfit update loop: on each
// new bot message it builds a prompt describing current outfit state,
// sends it to the generator, extracts commands from the reply, and
// applies the ones that score above the confidence threshold.
package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"wardrobe/internal/chat"
	"wardrobe/internal/instanceid"
	"wardrobe/internal/outfit"
	"wardrobe/internal/scan"
	"wardrobe/internal/slots"
)

var (
	ErrProcessing       = errors.New("auto-update already processing")
	ErrDisabled         = errors.New("auto-update disabled")
	ErrGenerationFailed = errors.New("outfit generation failed")
)

// Notifier surfaces one user-visible message. The pipeline emits at most
// one notification per processed batch.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Config tunes the pipeline. Zero values fall back to the defaults.
type Config struct {
	Enabled                bool
	MaxRetries             int
	RetryDelay             time.Duration
	MaxConsecutiveFailures int
	ConfidenceThreshold    float64
}

const (
	defaultMaxRetries             = 3
	defaultRetryDelay             = 2 * time.Second
	defaultMaxConsecutiveFailures = 3
	recentMessageCount            = 4
	flushTimeout                  = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return c
}

// Result partitions one batch of extracted commands.
type Result struct {
	Applied       []string
	Failed        []string
	LowConfidence []string
}

// Pipeline is safe for concurrent use; overlapping Process calls are
// serialized by rejection, not queueing.
type Pipeline struct {
	store     *outfit.Store
	session   chat.Session
	generator chat.Generator
	notifier  Notifier
	logger    *zap.Logger
	cfg       Config

	enabled    atomic.Bool
	processing atomic.Bool
	failures   atomic.Int64
	ready      atomic.Bool

	sleep func(time.Duration)
}

// New builds a pipeline. notifier may be nil.
func New(store *outfit.Store, session chat.Session, generator chat.Generator, notifier Notifier, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:     store,
		session:   session,
		generator: generator,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		sleep:     time.Sleep,
	}
	p.enabled.Store(cfg.Enabled)
	return p
}

// Enable allows future processing and resets the failure counter. It does
// not cancel an in-flight generation.
func (p *Pipeline) Enable() {
	p.failures.Store(0)
	p.enabled.Store(true)
}

// Disable prevents future processing. An in-flight generation runs to
// completion.
func (p *Pipeline) Disable() { p.enabled.Store(false) }

// Enabled reports whether new batches may start.
func (p *Pipeline) Enabled() bool { return p.enabled.Load() }

// Bind subscribes the pipeline to the host event stream and returns an
// unsubscribe function.
func (p *Pipeline) Bind(bus *chat.Bus) func() {
	offs := []func(){
		bus.On(chat.EventAppReady, func(chat.Event) { p.ready.Store(true) }),
		bus.On(chat.EventMessageReceived, func(ev chat.Event) {
			if !p.ready.Load() || ev.Message == nil || ev.Message.IsUser || ev.Message.IsSystem {
				return
			}
			if _, err := p.Process(context.Background()); err != nil &&
				!errors.Is(err, ErrProcessing) && !errors.Is(err, ErrDisabled) {
				p.logger.Error("auto-update failed", zap.Error(err))
			}
		}),
		bus.On(chat.EventChatChanged, func(chat.Event) { p.refreshContext() }),
		bus.On(chat.EventMessageSwiped, func(chat.Event) { p.refreshContext() }),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// refreshContext recomputes the conversation's instance id. Pending saves
// are flushed first so the old instance's state is persisted before any
// reader addresses the new one.
func (p *Pipeline) refreshContext() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := p.store.Flush(ctx); err != nil {
		p.logger.Error("flushing before context switch", zap.Error(err))
	}

	charID := p.session.CharacterID()
	first, ok := chat.FirstBotMessage(p.session.Messages())
	if !ok {
		p.store.SetCurrentContext(charID, p.session.ChatID(), "")
		return
	}
	gen := &instanceid.Generator{Known: func() []string {
		return p.store.KnownValues(charID)
	}}
	p.store.SetCurrentContext(charID, p.session.ChatID(), gen.Derive(first.Text))
}

// Process runs one batch: prompt, generate with retries, extract, score,
// apply, notify. Returns ErrProcessing when a batch is already running and
// ErrDisabled when the pipeline is off or has tripped its failure limit.
func (p *Pipeline) Process(ctx context.Context) (Result, error) {
	if !p.enabled.Load() {
		return Result{}, ErrDisabled
	}
	if p.failures.Load() >= int64(p.cfg.MaxConsecutiveFailures) {
		p.enabled.Store(false)
		p.notify("Outfit auto-updates paused after repeated failures.")
		return Result{}, fmt.Errorf("%w: %d consecutive failures", ErrDisabled, p.failures.Load())
	}
	if !p.processing.CompareAndSwap(false, true) {
		return Result{}, ErrProcessing
	}
	defer p.processing.Store(false)

	reply, err := p.generate(ctx, p.buildPrompt())
	if err != nil {
		n := p.failures.Add(1)
		p.notify(fmt.Sprintf("Outfit auto-update failed (%d of %d).",
			n, p.cfg.MaxConsecutiveFailures))
		return Result{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	p.failures.Store(0)

	result := p.apply(reply)
	p.summarize(result)
	return result, nil
}

// generate retries up to MaxRetries attempts with a fixed delay. Only the
// final attempt's error propagates.
func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			p.sleep(p.cfg.RetryDelay)
		}
		reply, err := p.generator.Generate(ctx, chat.GenerateRequest{
			Prompt:       prompt,
			SystemPrompt: systemPrompt,
		})
		if err == nil {
			return reply, nil
		}
		lastErr = err
		p.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", lastErr
}

func (p *Pipeline) apply(reply string) Result {
	var result Result

	charID, instID, ok := p.currentInstance()
	if !ok {
		p.logger.Warn("skipping batch: no conversation instance",
			zap.String("character", charID))
		return result
	}
	mgr := outfit.NewBotManager(p.store, charID, p.charName(), p.logger)
	mgr.SetInstanceID(instID)

	for _, candidate := range scan.Commands(reply) {
		cmd, score := Confidence(candidate)
		if score < p.cfg.ConfidenceThreshold {
			p.logger.Info("discarding low-confidence command",
				zap.String("command", candidate), zap.Float64("score", score))
			result.LowConfidence = append(result.LowConfidence, candidate)
			continue
		}

		value := cmd.Value
		if normalizeAction(cmd.Action) == "remove" {
			value = slots.None
		}
		msg, err := mgr.SetOutfitItem(cmd.Slot, value)
		if err != nil {
			p.logger.Warn("applying command",
				zap.String("command", candidate), zap.Error(err))
			result.Failed = append(result.Failed, candidate)
			continue
		}
		if msg != "" {
			result.Applied = append(result.Applied, msg)
		}
	}
	return result
}

// currentInstance returns the store's cached instance address, deriving
// the id from the first bot message when unset. Without an id the applied
// values would never reach the store, so ok is false and the batch must be
// skipped rather than reported as applied.
func (p *Pipeline) currentInstance() (charID, instID string, ok bool) {
	charID, _, instID = p.store.CurrentContext()
	if charID == "" {
		charID = p.session.CharacterID()
	}
	if instID != "" {
		return charID, instID, true
	}
	first, found := chat.FirstBotMessage(p.session.Messages())
	if !found {
		return charID, "", false
	}
	gen := &instanceid.Generator{Known: func() []string {
		return p.store.KnownValues(charID)
	}}
	instID = gen.Derive(first.Text)
	p.store.SetCurrentContext(charID, p.session.ChatID(), instID)
	return charID, instID, true
}

// summarize emits at most one notification for the batch, with singular
// wording for a single change.
func (p *Pipeline) summarize(result Result) {
	switch len(result.Applied) {
	case 0:
	case 1:
		p.notify(result.Applied[0])
	default:
		p.notify(fmt.Sprintf("%s made multiple outfit changes.", p.charName()))
	}
}

func (p *Pipeline) notify(message string) {
	if p.notifier != nil {
		p.notifier.Notify(message)
	}
}

func (p *Pipeline) charName() string {
	if name := chat.LastSpeakerName(p.session.Messages(), false); name != "" {
		return name
	}
	if name := p.session.CharacterName(); name != "" {
		return name
	}
	return "The character"
}

const systemPrompt = `You track clothing changes in a roleplay chat. ` +
	`When the latest messages describe the character putting on, removing, or ` +
	`changing clothing, output one command per change using exactly this format: ` +
	`outfit-system_wear_<slot>("<item>"), outfit-system_remove_<slot>(), or ` +
	`outfit-system_change_<slot>("<item>"). If nothing changed, output nothing.`

// buildPrompt lists the character's current outfit and the tail of the
// transcript.
func (p *Pipeline) buildPrompt() string {
	var b strings.Builder

	charID, _, instID := p.store.CurrentContext()
	if charID == "" {
		charID = p.session.CharacterID()
	}
	values := p.store.GetBotOutfit(charID, instID)

	fmt.Fprintf(&b, "Current outfit for %s:\n", p.charName())
	for _, slot := range slots.All() {
		fmt.Fprintf(&b, "- %s: %s\n", slot, values[slot])
	}
	b.WriteString("\nValid slots: " + strings.Join(slots.All(), ", ") + "\n")

	messages := p.session.Messages()
	if len(messages) > recentMessageCount {
		messages = messages[len(messages)-recentMessageCount:]
	}
	b.WriteString("\nRecent messages:\n")
	for _, m := range messages {
		name := m.Name
		if name == "" {
			if m.IsUser {
				name = "User"
			} else {
				name = "Character"
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", name, m.Text)
	}
	return b.String()
}
