package contact

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	contactModel "github.com/cvdeck/cv-deck/backend/internal/model/contact"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

type fakeExtractor struct {
	mu       sync.Mutex
	info     contactModel.Info
	err      error
	calls    int
	messages []chat.Prompt
}

func (e *fakeExtractor) ExtractContact(_ context.Context, messages []chat.Prompt) (contactModel.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.messages = messages
	return e.info, e.err
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeSubmitter struct {
	mu   sync.Mutex
	res  contactModel.SubmitResult
	err  error
	subs []contactModel.Submission
}

func (s *fakeSubmitter) SubmitChatContact(_ context.Context, sub contactModel.Submission) (contactModel.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return s.res, s.err
}

func (s *fakeSubmitter) submissions() []contactModel.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.subs)
}

type fakeTranscripts map[string][]chat.Turn

func (f fakeTranscripts) Load(_ context.Context, sessionID string) []chat.Turn {
	return f[sessionID]
}

type reconcilerFixture struct {
	rec       *Reconciler
	store     *kv.MemoryStore
	extractor *fakeExtractor
	submitter *fakeSubmitter
}

func newReconcilerFixture(t *testing.T, transcripts TranscriptSource) reconcilerFixture {
	t.Helper()
	f := reconcilerFixture{
		store:     kv.NewMemoryStore(),
		extractor: &fakeExtractor{},
		submitter: &fakeSubmitter{res: contactModel.SubmitResult{Success: true}},
	}
	f.rec = NewReconciler(f.store, time.Hour, f.extractor, f.submitter, transcripts, zaptest.NewLogger(t))
	return f
}

func (f reconcilerFixture) seed(t *testing.T, visitorID string, info contactModel.Info) {
	t.Helper()
	f.rec.saveRecord(context.Background(), visitorID, info)
}

func TestParseTrigger(t *testing.T) {
	got, ok := ParseTrigger(" Hidden ")
	assert.True(t, ok)
	assert.Equal(t, TriggerHidden, got)

	_, ok = ParseTrigger("visible")
	assert.False(t, ok)
}

func TestFilterForExtraction(t *testing.T) {
	turns := []chat.Turn{
		chat.Greeting(),
		{ID: "1", Role: chat.RoleUser, Content: "hi"},
		{ID: "2", Role: chat.RoleAssistant, Content: "hello"},
	}

	got := slices.Collect(FilterForExtraction(turns))
	want := []chat.Prompt{{Role: chat.RoleUser, Content: "hi"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterForExtraction() mismatch (-want +got):\n%s", diff)
	}

	// Restartable.
	assert.Len(t, slices.Collect(FilterForExtraction(turns)), 1)
}

func TestExtractSkipsEmptyInput(t *testing.T) {
	f := newReconcilerFixture(t, nil)

	got := f.rec.Extract(context.Background(), FilterForExtraction([]chat.Turn{chat.Greeting()}))
	assert.Equal(t, contactModel.Info{}, got)
	assert.Zero(t, f.extractor.callCount())
}

func TestExtractSwallowsFailure(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	f.extractor.err = errors.New("model down")

	got := f.rec.Extract(context.Background(), FilterForExtraction([]chat.Turn{chat.NewTurn(chat.RoleUser, "I'm Dana")}))
	assert.Equal(t, contactModel.Info{}, got)
	assert.Equal(t, 1, f.extractor.callCount())
}

func TestObserveMergesIntoStoredRecord(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	f.seed(t, "v1", contactModel.Info{Name: "Dana", Company: "Acme"})
	f.extractor.info = contactModel.Info{Email: "dana@example.com", Company: "  "}

	f.rec.Observe(context.Background(), "v1", []chat.Turn{chat.NewTurn(chat.RoleUser, "dana@example.com")})

	want := contactModel.Info{Name: "Dana", Email: "dana@example.com", Company: "Acme"}
	if diff := cmp.Diff(want, f.rec.Record(context.Background(), "v1")); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestObserveSkipsCompleteRecord(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	f.seed(t, "v1", contactModel.Info{Name: "Dana", Email: "dana@example.com"})
	f.extractor.info = contactModel.Info{Name: "Someone Else"}

	f.rec.Observe(context.Background(), "v1", []chat.Turn{chat.NewTurn(chat.RoleUser, "hello")})

	assert.Zero(t, f.extractor.callCount())
	assert.Equal(t, "Dana", f.rec.Record(context.Background(), "v1").Name)
}

func TestObserveLeavesRecordAloneWhenNothingFound(t *testing.T) {
	f := newReconcilerFixture(t, nil)

	f.rec.Observe(context.Background(), "v1", []chat.Turn{chat.NewTurn(chat.RoleUser, "what stack do you use?")})

	_, err := f.store.Get(context.Background(), recordPrefix+"v1")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestObserveAsyncOutlivesCaller(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newReconcilerFixture(t, nil)
	f.extractor.info = contactModel.Info{Name: "Dana"}

	ctx, cancel := context.WithCancel(context.Background())
	f.rec.ObserveAsync(ctx, "v1", []chat.Turn{chat.NewTurn(chat.RoleUser, "I'm Dana")})
	cancel()

	require.NoError(t, f.rec.Wait(context.Background()))
	assert.Equal(t, "Dana", f.rec.Record(context.Background(), "v1").Name)
}

func TestSubmitIncompleteRecord(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	f.seed(t, "v1", contactModel.Info{Name: "Dana", Phone: "555-1234"})

	assert.False(t, f.rec.Submit(context.Background(), "v1", nil))
	assert.Empty(t, f.submitter.submissions())
	assert.Equal(t, "Dana", f.rec.Record(context.Background(), "v1").Name)
}

func TestSubmitClearsOnSuccess(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	f.seed(t, "v1", contactModel.Info{Name: "Dana", Email: "dana@example.com", Company: "Acme"})

	turns := []chat.Turn{
		chat.Greeting(),
		{ID: "1", Role: chat.RoleUser, Content: "I'm Dana from Acme"},
	}
	require.True(t, f.rec.Submit(context.Background(), "v1", turns))

	subs := f.submitter.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Assistant: "+chat.GreetingContent+"\nUser: I'm Dana from Acme", subs[0].Message)
	assert.Equal(t, "Acme", subs[0].Company)
	assert.Equal(t, contactModel.Info{}, f.rec.Record(context.Background(), "v1"))
}

func TestSubmitKeepsRecordOnFailure(t *testing.T) {
	tests := []struct {
		name string
		res  contactModel.SubmitResult
		err  error
	}{
		{name: "error", err: errors.New("boom")},
		{name: "rejected", res: contactModel.SubmitResult{Success: false, Message: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcilerFixture(t, nil)
			f.submitter.res, f.submitter.err = tt.res, tt.err
			f.seed(t, "v1", contactModel.Info{Name: "Dana", Email: "dana@example.com"})

			assert.False(t, f.rec.Submit(context.Background(), "v1", nil))
			assert.Equal(t, "dana@example.com", f.rec.Record(context.Background(), "v1").Email)
		})
	}
}

func TestHandleLifecycleUsesTranscript(t *testing.T) {
	defer goleak.VerifyNone(t)

	transcripts := fakeTranscripts{"s1": {{ID: "1", Role: chat.RoleUser, Content: "call me"}}}
	f := newReconcilerFixture(t, transcripts)
	f.seed(t, "v1", contactModel.Info{Name: "Dana", Phone: "+1 555 123 4567"})

	f.rec.HandleLifecycle(context.Background(), "v1", "s1", TriggerUnload)
	require.NoError(t, f.rec.Wait(context.Background()))

	subs := f.submitter.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "User: call me", subs[0].Message)

	// A second trigger finds nothing left to send.
	f.rec.HandleLifecycle(context.Background(), "v1", "s1", TriggerHidden)
	require.NoError(t, f.rec.Wait(context.Background()))
	assert.Len(t, f.submitter.submissions(), 1)
}

func TestComposeMessage(t *testing.T) {
	tests := []struct {
		name  string
		info  contactModel.Info
		turns []chat.Turn
		want  string
	}{
		{
			name: "fields",
			info: contactModel.Info{Company: "Acme", Phone: "5551234567", Message: "Hiring"},
			want: "Company: Acme\nPhone: 5551234567\nHiring",
		},
		{
			name: "default body",
			info: contactModel.Info{Name: "Dana"},
			want: DefaultChatMessage,
		},
		{
			name:  "transcript wins",
			info:  contactModel.Info{Company: "Acme", Message: "Hiring"},
			turns: []chat.Turn{{Role: chat.RoleUser, Content: "hi"}, {Role: chat.RoleAssistant, Content: "hello"}},
			want:  "User: hi\nAssistant: hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeMessage(tt.info, tt.turns))
		})
	}
}

func TestWaitHonorsContext(t *testing.T) {
	f := newReconcilerFixture(t, nil)
	block := make(chan struct{})
	f.rec.goDetached(context.Background(), func(context.Context) { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.rec.Wait(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, f.rec.Wait(context.Background()))
}
