// Package autopilot runs the unattended newsroom loop: research trending
// topics, illustrate and publish the resulting drafts, log every step and
// reschedule itself while enabled.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pamong_newsroom/generator"
	"pamong_newsroom/news"
	"pamong_newsroom/state"
)

const (
	DefaultInterval = 3600 * time.Second
	DefaultAuthor   = "Pamong AI Bot"
	// LogLimit caps the activity log; older entries are evicted.
	LogLimit = 100

	titlePreviewRunes = 30
)

// ErrBusy is returned by TriggerManualRun and BeginManualRun when a cycle is
// already running.
var ErrBusy = errors.New("autopilot cycle already running")

// Status is the observer-facing form of the enabled flag.
type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
)

// State describes what the orchestrator is doing right now.
type State string

const (
	StateIdle      State = "idle"
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
)

// Researcher produces a batch of trending drafts.
type Researcher interface {
	GenerateTrendingDrafts(ctx context.Context) ([]generator.Draft, error)
}

// ImageGenerator illustrates a draft.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ArticleCreator persists a finished article.
type ArticleCreator interface {
	CreateArticle(ctx context.Context, in news.NewArticle) (news.Article, error)
}

// Timer is the handle of a pending delayed run.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options wires the orchestrator's collaborators. Researcher, Images,
// Articles and Store are required.
type Options struct {
	Researcher Researcher
	Images     ImageGenerator
	Articles   ArticleCreator
	Store      state.Store

	Interval time.Duration
	Author   string
	Logger   *slog.Logger

	Now       func() time.Time
	AfterFunc AfterFunc
	Slug      func(title string) string
}

// Orchestrator owns the enabled flag, the cycle loop and the activity log.
type Orchestrator struct {
	research Researcher
	images   ImageGenerator
	articles ArticleCreator
	store    state.Store

	interval  time.Duration
	author    string
	logger    *slog.Logger
	now       func() time.Time
	afterFunc AfterFunc
	slug      func(string) string

	// running is the in-memory latch that keeps cycles from overlapping.
	running atomic.Bool

	// logMu serializes append and persist so the stored log matches memory.
	logMu sync.Mutex

	mu       sync.Mutex
	logs     []state.LogEntry
	onStatus func(Status)
	onLogs   func([]state.LogEntry)
	// pending holds log snapshots not yet handed to onLogs; delivering is
	// set while one goroutine drains it.
	pending    [][]state.LogEntry
	delivering bool
	timer    Timer
	timerGen uint64
	baseCtx  context.Context
	closed   bool
	bg       sync.WaitGroup
}

// New builds an orchestrator and loads the persisted activity log.
func New(ctx context.Context, opts Options) (*Orchestrator, error) {
	switch {
	case opts.Researcher == nil:
		return nil, errors.New("researcher is required")
	case opts.Images == nil:
		return nil, errors.New("image generator is required")
	case opts.Articles == nil:
		return nil, errors.New("article creator is required")
	case opts.Store == nil:
		return nil, errors.New("state store is required")
	}
	o := &Orchestrator{
		research:  opts.Researcher,
		images:    opts.Images,
		articles:  opts.Articles,
		store:     opts.Store,
		interval:  opts.Interval,
		author:    opts.Author,
		logger:    opts.Logger,
		now:       opts.Now,
		afterFunc: opts.AfterFunc,
		slug:      opts.Slug,
		baseCtx:   context.Background(),
	}
	if o.interval <= 0 {
		o.interval = DefaultInterval
	}
	if o.author == "" {
		o.author = DefaultAuthor
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "autopilot")
	if o.now == nil {
		o.now = time.Now
	}
	if o.afterFunc == nil {
		o.afterFunc = stdAfterFunc
	}
	if o.slug == nil {
		o.slug = news.UniqueSlug
	}

	logs, err := o.store.Logs(ctx, LogLimit)
	if err != nil {
		o.logger.Warn("load activity log failed", "error", err)
	}
	o.logs = logs
	return o, nil
}

// Start binds ctx as the context for background cycles and resumes the loop
// when the persisted flag is already enabled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
	if o.GetStatus(ctx) {
		o.logger.Info("resuming enabled autopilot")
		o.startBackground()
	}
}

// Close disarms the pending timer and waits for background cycles to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.disarmLocked()
	o.mu.Unlock()
	o.bg.Wait()
}

// Subscribe registers the status and log observers, replacing earlier ones.
// Log snapshots reach onLogs in append order. Observers may call back into the
// orchestrator; entries they add are delivered after the current callback returns.
func (o *Orchestrator) Subscribe(onStatus func(Status), onLogs func([]state.LogEntry)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onStatus = onStatus
	o.onLogs = onLogs
}

// GetStatus reports the persisted flag. A store failure reads as disabled.
func (o *Orchestrator) GetStatus(ctx context.Context) bool {
	enabled, err := o.status(ctx)
	if err != nil {
		o.logger.Error("read autopilot flag failed", "error", err)
		return false
	}
	return enabled
}

func (o *Orchestrator) status(ctx context.Context) (bool, error) {
	return o.store.Enabled(ctx)
}

// SetStatus persists the flag. Enabling starts a cycle right away unless one
// is running; disabling lets a running cycle stop at its next check and
// cancels the pending reschedule.
func (o *Orchestrator) SetStatus(ctx context.Context, enabled bool) error {
	if err := o.store.SetEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("persist autopilot flag: %w", err)
	}
	if enabled {
		if !o.running.Load() {
			o.addLog(ctx, "🤖 Auto-Pilot diaktifkan oleh admin. Memulai pengawasan tren...", state.LogInfo)
			o.mu.Lock()
			o.disarmLocked()
			o.mu.Unlock()
			o.startBackground()
		}
	} else {
		o.addLog(ctx, "👤 Auto-Pilot dinonaktifkan. Beralih ke mode manual.", state.LogWarning)
		o.mu.Lock()
		o.disarmLocked()
		o.mu.Unlock()
	}
	o.notifyStatus(enabled)
	return nil
}

// Logs returns a copy of the activity log, newest first.
func (o *Orchestrator) Logs() []state.LogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]state.LogEntry, len(o.logs))
	copy(out, o.logs)
	return out
}

// State reports whether a cycle is running, one is scheduled, or neither.
func (o *Orchestrator) State() State {
	if o.running.Load() {
		return StateRunning
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		return StateScheduled
	}
	return StateIdle
}

// Execute runs one automatic cycle. It does nothing when the flag is off or
// another cycle holds the latch, and re-arms the timer afterwards while enabled.
// When the flag cannot be read the cycle is skipped and retried next interval.
func (o *Orchestrator) Execute(ctx context.Context) {
	enabled, err := o.status(ctx)
	if err != nil {
		o.logger.Error("read autopilot flag failed, retrying next interval", "error", err)
		o.rearm(ctx)
		return
	}
	if !enabled {
		return
	}
	if !o.running.CompareAndSwap(false, true) {
		return
	}
	o.runCycle(ctx, true)
	o.running.Store(false)
	o.rearm(ctx)
}

// TriggerManualRun performs exactly one cycle inline without touching the
// flag. If the autopilot was enabled when the run started, disabling it
// mid-batch stops the run like an automatic one.
func (o *Orchestrator) TriggerManualRun(ctx context.Context) error {
	run, err := o.BeginManualRun()
	if err != nil {
		return err
	}
	run(ctx)
	return nil
}

// BeginManualRun takes the running latch and returns the cycle to execute,
// or ErrBusy. Callers that answer before the cycle ends use it so the answer
// matches what happens; run must be called exactly once.
func (o *Orchestrator) BeginManualRun() (run func(ctx context.Context), err error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func(ctx context.Context) {
		o.runCycle(ctx, o.GetStatus(ctx))
		o.running.Store(false)
		o.rearm(ctx)
	}, nil
}

func (o *Orchestrator) runCycle(ctx context.Context, stopOnDisable bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("autopilot cycle panicked", "panic", r)
			o.addLog(ctx, fmt.Sprintf("❌ Gangguan Sistem: %v", r), state.LogError)
		}
	}()

	o.addLog(ctx, "📡 Memindai tren viral terbaru di Indonesia...", state.LogInfo)
	drafts, err := o.research.GenerateTrendingDrafts(ctx)
	if err != nil {
		o.logger.Error("research failed", "error", err)
		o.addLog(ctx, "❌ Gangguan Sistem: "+err.Error(), state.LogError)
		return
	}
	o.addLog(ctx, fmt.Sprintf("📊 Tren terdeteksi! Mengolah %d berita.", len(drafts)), state.LogInfo)

	for i, d := range drafts {
		if stopOnDisable {
			enabled, err := o.status(ctx)
			if err != nil {
				o.logger.Error("read autopilot flag failed", "error", err)
				o.addLog(ctx, "❌ Gangguan Sistem: gagal membaca status Auto-Pilot: "+err.Error(), state.LogError)
				return
			}
			if !enabled {
				o.logger.Info("autopilot disabled mid-batch", "discarded", len(drafts)-i)
				break
			}
		}
		o.addLog(ctx, fmt.Sprintf("🎨 Menghasilkan ilustrasi AI: %s...", preview(d.Title)), state.LogInfo)

		imageURL, err := o.images.GenerateImage(ctx, d.ImagePrompt)
		if err != nil {
			o.logger.Warn("image generation failed", "title", d.Title, "error", err)
			o.addLog(ctx, fmt.Sprintf("⚠️ Gagal generate gambar khusus (%v), menggunakan placeholder.", err), state.LogWarning)
			imageURL = PlaceholderImage(o.now(), i)
		}

		if _, err := o.articles.CreateArticle(ctx, o.buildArticle(d, imageURL)); err != nil {
			o.logger.Error("publish failed", "title", d.Title, "error", err)
			o.addLog(ctx, fmt.Sprintf("❌ Gagal menerbitkan %q: %v", d.Title, err), state.LogError)
			return
		}
		o.addLog(ctx, "✅ Terbit: "+d.Title, state.LogSuccess)
	}

	o.addLog(ctx, "✨ Siklus selesai. Beristirahat sebelum pemindaian berikutnya.", state.LogSuccess)
}

func (o *Orchestrator) buildArticle(d generator.Draft, imageURL string) news.NewArticle {
	return news.NewArticle{
		Title:      d.Title,
		Slug:       o.slug(d.Title),
		Summary:    d.Summary,
		Content:    d.Content,
		Category:   d.Category,
		ImageURL:   imageURL,
		Author:     o.author,
		IsBreaking: true,
	}
}

// rearm schedules the next automatic cycle if the flag is on and nothing is
// pending yet. An unreadable flag still arms: the fired timer goes through
// Execute, which re-checks it.
func (o *Orchestrator) rearm(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	enabled, err := o.status(ctx)
	if err != nil {
		o.logger.Warn("read autopilot flag failed, scheduling anyway", "error", err)
	} else if !enabled {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.timer != nil {
		return
	}
	o.timerGen++
	gen := o.timerGen
	o.timer = o.afterFunc(o.interval, func() { o.fire(gen) })
	o.logger.Info("next autopilot cycle scheduled", "in", o.interval)
}

func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if o.closed || gen != o.timerGen || o.timer == nil {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	ctx := o.baseCtx
	o.bg.Add(1)
	o.mu.Unlock()

	defer o.bg.Done()
	o.Execute(ctx)
}

func (o *Orchestrator) disarmLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.timerGen++
}

func (o *Orchestrator) startBackground() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	ctx := o.baseCtx
	o.bg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.bg.Done()
		o.Execute(ctx)
	}()
}

func (o *Orchestrator) addLog(ctx context.Context, message string, typ state.LogType) {
	o.logMu.Lock()
	entry := state.NewLogEntry(o.now(), message, typ)
	if err := o.store.AppendLog(context.WithoutCancel(ctx), entry, LogLimit); err != nil {
		o.logger.Warn("persist activity log failed", "error", err)
	}

	o.mu.Lock()
	o.logs = state.Prepend(o.logs, entry, LogLimit)
	if o.onLogs != nil {
		snapshot := make([]state.LogEntry, len(o.logs))
		copy(snapshot, o.logs)
		o.pending = append(o.pending, snapshot)
	}
	o.mu.Unlock()
	o.logMu.Unlock()

	o.deliverLogs()
}

// deliverLogs drains pending snapshots with no lock held. Only one goroutine
// drains at a time, which keeps delivery in append order; a nested or
// concurrent addLog leaves its snapshot to the active drainer.
func (o *Orchestrator) deliverLogs() {
	o.mu.Lock()
	if o.delivering {
		o.mu.Unlock()
		return
	}
	o.delivering = true
	for len(o.pending) > 0 {
		snapshot := o.pending[0]
		o.pending[0] = nil
		o.pending = o.pending[1:]
		cb := o.onLogs
		o.mu.Unlock()
		if cb != nil {
			cb(snapshot)
		}
		o.mu.Lock()
	}
	o.pending = nil
	o.delivering = false
	o.mu.Unlock()
}

func (o *Orchestrator) notifyStatus(enabled bool) {
	o.mu.Lock()
	cb := o.onStatus
	o.mu.Unlock()
	if cb == nil {
		return
	}
	if enabled {
		cb(StatusActive)
	} else {
		cb(StatusIdle)
	}
}

// PlaceholderImage is the fallback illustration for draft index i. Adding the
// index keeps references distinct within a batch stamped in the same millisecond.
func PlaceholderImage(now time.Time, i int) string {
	return fmt.Sprintf("https://picsum.photos/800/450?random=%d", now.UnixMilli()+int64(i))
}

func preview(title string) string {
	r := []rune(title)
	if len(r) <= titlePreviewRunes {
		return title
	}
	return string(r[:titlePreviewRunes])
}
