package completion

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*ChatResponse)
	return resp, args.Error(1)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func testConfig() Config {
	return Config{
		Model:          "test-model",
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: time.Second,
		MaxTokens:      500,
		Temperature:    0.7,
		HistoryTurns:   5,
	}
}

func newTestGateway(t *testing.T, tr Transport) (*Gateway, *sleepRecorder) {
	t.Helper()
	g := New(testConfig(), tr, zerolog.Nop())
	rec := &sleepRecorder{}
	g.sleep = rec.sleep
	return g, rec
}

var transient = &TransportError{StatusCode: 503, Transient: true, Err: errors.New("upstream overloaded")}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, Backoff(base, 0, 0))
	assert.Equal(t, 4*time.Second, Backoff(base, 0, 1))
	assert.Equal(t, 8*time.Second, Backoff(base, 0, 2))
	assert.Equal(t, 16*time.Second, Backoff(base, 0, 3))

	assert.Equal(t, 10*time.Second, Backoff(base, 10*time.Second, 3), "capped at max")
	assert.Equal(t, 10*time.Second, Backoff(base, 10*time.Second, 200), "no overflow for large attempts")
	assert.Equal(t, time.Duration(0), Backoff(0, 0, 4))
}

func TestBackoff_UncappedNeverDecreases(t *testing.T) {
	base := 2 * time.Second
	prev := Backoff(base, 0, 0)
	for attempt := 1; attempt <= 70; attempt++ {
		d := Backoff(base, 0, attempt)
		require.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, time.Duration(math.MaxInt64), Backoff(base, 0, 33))
}

func TestDelay_JitterStaysInRange(t *testing.T) {
	cfg := testConfig()
	cfg.Jitter = true
	g := New(cfg, nil, zerolog.Nop())

	for attempt := 0; attempt < 4; attempt++ {
		full := Backoff(cfg.BaseDelay, cfg.MaxDelay, attempt)
		for i := 0; i < 50; i++ {
			d := g.delay(attempt)
			assert.GreaterOrEqual(t, d, full/2)
			assert.LessOrEqual(t, d, full)
		}
	}
}

func TestComplete_TransientThenSuccess(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(nil, transient).Twice()
	tr.On("Complete", mock.Anything, mock.Anything).Return(&ChatResponse{Text: "Drink water."}, nil).Once()

	g, rec := newTestGateway(t, tr)
	res, err := g.Complete(context.Background(), Request{Kind: KindChat, Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "Drink water.", res.Text)
	assert.Equal(t, KindChat, res.Kind)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, 3, res.Attempts)
	tr.AssertNumberOfCalls(t, "Complete", 3)

	require.Len(t, rec.delays, 2)
	assert.Equal(t, 100*time.Millisecond, rec.delays[0])
	assert.Equal(t, 200*time.Millisecond, rec.delays[1])
	assert.Greater(t, rec.delays[1], rec.delays[0])
}

func TestComplete_AlwaysTransientStopsAtMaxAttempts(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(nil, transient)

	g, rec := newTestGateway(t, tr)
	res, err := g.Complete(context.Background(), Request{Kind: KindSymptomCheck, Text: "headache and fever"})
	assert.Nil(t, res)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnavailable)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, KindSymptomCheck, unavailable.Kind)
	assert.ErrorIs(t, err, transient, "wraps the last transport error")

	tr.AssertNumberOfCalls(t, "Complete", 3)
	assert.Len(t, rec.delays, 2, "no wait after the final attempt")
}

func TestComplete_FatalIsNotRetried(t *testing.T) {
	fatal := &TransportError{StatusCode: 401, Transient: false, Err: errors.New("invalid api key")}
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(nil, fatal)

	g, rec := newTestGateway(t, tr)
	_, err := g.Complete(context.Background(), Request{Kind: KindGeneralAdvice, Text: "sleep hygiene"})
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, IsTransient(err))
	tr.AssertNumberOfCalls(t, "Complete", 1)
	assert.Empty(t, rec.delays)
}

func TestComplete_EmptyCompletionIsFatal(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(&ChatResponse{Text: "   "}, nil)

	g, _ := newTestGateway(t, tr)
	_, err := g.Complete(context.Background(), Request{Kind: KindChat, Text: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)
	tr.AssertNumberOfCalls(t, "Complete", 1)
}

func TestComplete_EmptyTextNeverSent(t *testing.T) {
	tr := &mockTransport{}
	g, _ := newTestGateway(t, tr)

	_, err := g.Complete(context.Background(), Request{Kind: KindChat, Text: " \n\t "})
	assert.ErrorIs(t, err, ErrEmptyText)
	tr.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	_, err = g.Complete(context.Background(), Request{Kind: "poetry", Text: "x"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestComplete_AttemptTimeoutIsTransient(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	cfg := testConfig()
	cfg.AttemptTimeout = 10 * time.Millisecond
	cfg.MaxAttempts = 2
	g := New(cfg, tr, zerolog.Nop())
	rec := &sleepRecorder{}
	g.sleep = rec.sleep

	_, err := g.Complete(context.Background(), Request{Kind: KindChat, Text: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)
	tr.AssertNumberOfCalls(t, "Complete", 2)
	assert.Len(t, rec.delays, 1)
}

func TestComplete_CancelledDuringBackoff(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(nil, transient)

	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	g := New(cfg, tr, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := g.Complete(ctx, Request{Kind: KindChat, Text: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	tr.AssertNumberOfCalls(t, "Complete", 1)
}

func TestComplete_SendsDisclaimerForEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindChat, KindSymptomCheck, KindTreatmentPlan, KindGeneralAdvice} {
		t.Run(string(kind), func(t *testing.T) {
			tr := &mockTransport{}
			tr.On("Complete", mock.Anything, mock.MatchedBy(func(req *ChatRequest) bool {
				return req.Messages[0].Role == RoleSystem &&
					strings.Contains(req.Messages[0].Content, DisclaimerInstruction) &&
					req.Model == "test-model" && req.MaxTokens == 500
			})).Return(&ChatResponse{Text: "ok"}, nil)

			g, _ := newTestGateway(t, tr)
			_, err := g.Complete(context.Background(), Request{Kind: kind, Text: "diabetes"})
			require.NoError(t, err)
			tr.AssertExpectations(t)
		})
	}
}

func TestGateway_ConcurrentUse(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Complete", mock.Anything, mock.Anything).Return(&ChatResponse{Text: "ok"}, nil)
	g, _ := newTestGateway(t, tr)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Complete(context.Background(), Request{Kind: KindChat, Text: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	tr.AssertNumberOfCalls(t, "Complete", 20)
}
