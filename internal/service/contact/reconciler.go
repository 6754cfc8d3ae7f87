package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactModel "github.com/cvdeck/cv-deck/backend/internal/model/contact"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

const (
	recordPrefix = "contact:"
	cycleTimeout = 30 * time.Second
	recordLocks  = 64
)

// Trigger is a browser lifecycle signal that may flush the contact record.
type Trigger string

const (
	TriggerHidden Trigger = "hidden"
	TriggerUnload Trigger = "unload"
)

// ParseTrigger accepts "hidden" and "unload".
func ParseTrigger(raw string) (Trigger, bool) {
	switch t := Trigger(strings.ToLower(strings.TrimSpace(raw))); t {
	case TriggerHidden, TriggerUnload:
		return t, true
	default:
		return "", false
	}
}

// Extractor pulls contact fields out of the visitor's messages.
type Extractor interface {
	ExtractContact(ctx context.Context, messages []chat.Prompt) (contactModel.Info, error)
}

// Submitter accepts a complete contact record.
type Submitter interface {
	SubmitChatContact(ctx context.Context, sub contactModel.Submission) (contactModel.SubmitResult, error)
}

// TranscriptSource returns a session's conversation.
type TranscriptSource interface {
	Load(ctx context.Context, sessionID string) []chat.Turn
}

// Reconciler assembles a visitor's contact record from their conversations
// and submits it when the visitor leaves. Nothing it does is ever surfaced
// to the visitor: failures are logged and the record is kept for a retry.
type Reconciler struct {
	store       kv.Store
	ttl         time.Duration
	extractor   Extractor
	submitter   Submitter
	transcripts TranscriptSource
	logger      *zap.Logger

	locks [recordLocks]sync.Mutex
	wg    sync.WaitGroup
}

// NewReconciler keeps records for ttl after their last change. A nil
// extractor disables passive cycles.
func NewReconciler(store kv.Store, ttl time.Duration, extractor Extractor, submitter Submitter, transcripts TranscriptSource, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:       store,
		ttl:         ttl,
		extractor:   extractor,
		submitter:   submitter,
		transcripts: transcripts,
		logger:      logger.Named("reconciler"),
	}
}

// FilterForExtraction yields the visitor's own messages, skipping the
// assistant and the seeded greeting. The sequence can be ranged over any
// number of times.
func FilterForExtraction(turns []chat.Turn) iter.Seq[chat.Prompt] {
	return func(yield func(chat.Prompt) bool) {
		for _, t := range turns {
			if t.Role != chat.RoleUser || t.ID == chat.GreetingID {
				continue
			}
			if !yield(t.Prompt()) {
				return
			}
		}
	}
}

// Extract runs the extractor over filtered. An empty sequence returns the
// zero record without calling it; any failure also yields the zero record.
func (r *Reconciler) Extract(ctx context.Context, filtered iter.Seq[chat.Prompt]) contactModel.Info {
	messages := slices.Collect(filtered)
	if len(messages) == 0 || r.extractor == nil {
		return contactModel.Info{}
	}

	info, err := r.extractor.ExtractContact(ctx, messages)
	if err != nil {
		r.logger.Warn("contact extraction failed", zap.Error(err))
		return contactModel.Info{}
	}
	return contactModel.Normalize(info)
}

// Record returns the visitor's stored record; missing or unreadable
// records read as empty.
func (r *Reconciler) Record(ctx context.Context, visitorID string) contactModel.Info {
	raw, err := r.store.Get(ctx, recordPrefix+visitorID)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			r.logger.Warn("load contact record failed", zap.String("visitor", visitorID), zap.Error(err))
		}
		return contactModel.Info{}
	}
	var info contactModel.Info
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		r.logger.Warn("discarding unreadable contact record", zap.String("visitor", visitorID), zap.Error(err))
		return contactModel.Info{}
	}
	return contactModel.Normalize(info)
}

func (r *Reconciler) saveRecord(ctx context.Context, visitorID string, info contactModel.Info) {
	data, err := json.Marshal(info)
	if err != nil {
		r.logger.Warn("encode contact record failed", zap.String("visitor", visitorID), zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, recordPrefix+visitorID, string(data), r.ttl); err != nil {
		r.logger.Warn("save contact record failed", zap.String("visitor", visitorID), zap.Error(err))
	}
}

func (r *Reconciler) clearRecord(ctx context.Context, visitorID string) {
	if err := r.store.Delete(ctx, recordPrefix+visitorID); err != nil {
		r.logger.Warn("clear contact record failed", zap.String("visitor", visitorID), zap.Error(err))
	}
}

// Observe runs one passive cycle: unless the stored record is already
// complete, extract from turns and merge anything found into it.
func (r *Reconciler) Observe(ctx context.Context, visitorID string, turns []chat.Turn) {
	if r.Record(ctx, visitorID).IsComplete() {
		return
	}

	extracted := r.Extract(ctx, FilterForExtraction(turns))
	if !extracted.HasAny() {
		return
	}

	// Overlapping cycles merge into the latest stored record; the last one
	// to land wins per field.
	mu := r.lock(visitorID)
	mu.Lock()
	defer mu.Unlock()
	merged := contactModel.Merge(r.Record(ctx, visitorID), extracted)
	r.saveRecord(ctx, visitorID, merged)
}

// ObserveAsync runs Observe in the background. The cycle is detached from
// ctx's cancellation; Wait drains it.
func (r *Reconciler) ObserveAsync(ctx context.Context, visitorID string, turns []chat.Turn) {
	turns = slices.Clone(turns)
	r.goDetached(ctx, func(ctx context.Context) {
		r.Observe(ctx, visitorID, turns)
	})
}

// HandleLifecycle submits the visitor's record in the background with the
// session's transcript. Both triggers do the same thing; a second trigger
// after a successful submit finds nothing to send.
func (r *Reconciler) HandleLifecycle(ctx context.Context, visitorID, sessionID string, trigger Trigger) {
	r.logger.Debug("lifecycle trigger", zap.String("visitor", visitorID), zap.String("trigger", string(trigger)))
	r.goDetached(ctx, func(ctx context.Context) {
		var turns []chat.Turn
		if sessionID != "" && r.transcripts != nil {
			turns = r.transcripts.Load(ctx, sessionID)
		}
		r.Submit(ctx, visitorID, turns)
	})
}

// Submit sends the stored record if it is complete and clears it once the
// submission succeeds. It reports whether the record was submitted.
func (r *Reconciler) Submit(ctx context.Context, visitorID string, turns []chat.Turn) bool {
	info := r.Record(ctx, visitorID)
	if !info.IsComplete() {
		return false
	}

	sub := contactModel.Submission{
		Name:    info.Name,
		Email:   info.Email,
		Phone:   info.Phone,
		Company: info.Company,
		Message: ComposeMessage(info, turns),
	}
	res, err := r.submitter.SubmitChatContact(ctx, sub)
	if err != nil {
		r.logger.Warn("contact submission failed", zap.String("visitor", visitorID), zap.Error(err))
		return false
	}
	if !res.Success {
		r.logger.Warn("contact submission rejected", zap.String("visitor", visitorID), zap.String("message", res.Message))
		return false
	}

	r.clearRecord(ctx, visitorID)
	return true
}

// ComposeMessage builds the submission body. A non-empty conversation is
// rendered as a full transcript; otherwise the stored fields are used.
func ComposeMessage(info contactModel.Info, turns []chat.Turn) string {
	if len(turns) > 0 {
		lines := make([]string, 0, len(turns))
		for _, t := range turns {
			speaker := "Assistant"
			if t.Role == chat.RoleUser {
				speaker = "User"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", speaker, t.Content))
		}
		return strings.Join(lines, "\n")
	}

	var lines []string
	if info.Company != "" {
		lines = append(lines, "Company: "+info.Company)
	}
	if info.Phone != "" {
		lines = append(lines, "Phone: "+info.Phone)
	}
	base := info.Message
	if base == "" {
		base = DefaultChatMessage
	}
	return strings.Join(append(lines, base), "\n")
}

// Wait blocks until every background cycle has finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) goDetached(ctx context.Context, fn func(context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cycleTimeout)
		defer cancel()
		fn(cctx)
	}()
}

func (r *Reconciler) lock(visitorID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(visitorID))
	return &r.locks[h.Sum32()%recordLocks]
}
