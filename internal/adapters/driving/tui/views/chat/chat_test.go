package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

type mockQueryService struct {
	result   *domain.QueryResult
	err      error
	gotTopK  int
	gotText  string
	gotColID string
}

func (m *mockQueryService) Query(_ context.Context, collectionID, text string, topK int) (*domain.QueryResult, error) {
	m.gotColID = collectionID
	m.gotText = text
	m.gotTopK = topK
	return m.result, m.err
}

type mockFeedbackService struct {
	logID  string
	rating int
	err    error
}

func (m *mockFeedbackService) SubmitFeedback(_ context.Context, logID string, rating int, _ string) error {
	m.logID = logID
	m.rating = rating
	return m.err
}

func (m *mockFeedbackService) ListLogs(context.Context, string, int) ([]domain.QueryLog, error) {
	return nil, nil
}

func (m *mockFeedbackService) GetLog(context.Context, string) (*domain.QueryLog, error) {
	return nil, domain.ErrNotFound
}

func testCollection() *domain.Collection {
	return &domain.Collection{ID: "col-1", Name: "handbook"}
}

func testResult() *domain.QueryResult {
	return &domain.QueryResult{
		Answer:  "Annual leave is 25 days.",
		LogID:   "log-1",
		Model:   "gpt-4o-mini",
		Usage:   domain.TokenUsage{PromptTokens: 50, CompletionTokens: 7, TotalTokens: 57},
		Latency: 900 * time.Millisecond,
		Chunks: []domain.RetrievedChunk{
			{ChunkID: "c1", DocumentID: "d1", Content: "Staff receive 25 days\nof annual leave.", Distance: 0.12},
		},
	}
}

func newTestView(q *mockQueryService, f *mockFeedbackService) *View {
	v := NewView(nil, nil, q, f, testCollection())
	v.SetDimensions(120, 40)
	return v
}

func typeText(v *View, text string) {
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func enter(v *View) tea.Cmd {
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestNewView_Defaults(t *testing.T) {
	v := NewView(nil, nil, nil, nil, nil)

	require.NotNil(t, v)
	assert.Empty(t, v.Turns())
	assert.False(t, v.Pending())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_SubmitQuestion(t *testing.T) {
	q := &mockQueryService{result: testResult()}
	v := newTestView(q, nil).WithTopK(5)

	typeText(v, "How much leave?")
	cmd := enter(v)
	require.NotNil(t, cmd)

	assert.True(t, v.Pending())
	assert.Equal(t, "", v.Input().Value())
	assert.Equal(t, status.StateThinking, v.StatusBar().State())
	require.Len(t, v.Turns(), 1)
	assert.Contains(t, v.View(), "Thinking...")

	msg := cmd()
	answer, ok := msg.(messages.AnswerReceived)
	require.True(t, ok)
	assert.Equal(t, "col-1", q.gotColID)
	assert.Equal(t, "How much leave?", q.gotText)
	assert.Equal(t, 5, q.gotTopK)

	v.Update(answer)

	assert.False(t, v.Pending())
	require.Len(t, v.Turns(), 1)
	assert.Equal(t, "log-1", v.Turns()[0].Result.LogID)
	assert.Equal(t, status.StateAnswered, v.StatusBar().State())

	view := v.View()
	assert.Contains(t, view, "How much leave?")
	assert.Contains(t, view, "Annual leave is 25 days.")
	assert.Contains(t, view, "Staff receive 25 days of annual leave.")
}

func TestView_EmptyQuestionIgnored(t *testing.T) {
	v := newTestView(&mockQueryService{}, nil)

	typeText(v, "   ")
	cmd := enter(v)

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
	assert.False(t, v.Pending())
}

func TestView_SecondQuestionWhilePendingIgnored(t *testing.T) {
	v := newTestView(&mockQueryService{result: testResult()}, nil)

	typeText(v, "first")
	require.NotNil(t, enter(v))

	typeText(v, "second")
	assert.Nil(t, enter(v))
	assert.Len(t, v.Turns(), 1)
}

func TestView_QueryError(t *testing.T) {
	q := &mockQueryService{err: errors.New("provider unavailable")}
	v := newTestView(q, nil)

	typeText(v, "anything")
	v.Update(enter(v)())

	require.Len(t, v.Turns(), 1)
	assert.Error(t, v.Turns()[0].Err)
	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Contains(t, v.View(), "Error: provider unavailable")
}

func TestView_NoQueryService(t *testing.T) {
	v := newTestView(nil, nil)
	v.queryService = nil

	typeText(v, "anything")
	msg := enter(v)()

	answer, ok := msg.(messages.AnswerReceived)
	require.True(t, ok)
	assert.ErrorIs(t, answer.Err, ErrNoQueryService)
}

func TestView_RateLastAnswer(t *testing.T) {
	f := &mockFeedbackService{}
	v := newTestView(&mockQueryService{result: testResult()}, f)

	typeText(v, "How much leave?")
	v.Update(enter(v)())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)
	msg := cmd()
	v.Update(msg)

	assert.Equal(t, "log-1", f.logID)
	assert.Equal(t, -1, f.rating)
	require.NotNil(t, v.Turns()[0].Rating)
	assert.Equal(t, -1, *v.Turns()[0].Rating)
	assert.Contains(t, v.View(), "rated -1")

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	v.Update(cmd())
	assert.Equal(t, 1, *v.Turns()[0].Rating)
}

func TestView_RateWithoutAnswerDoesNothing(t *testing.T) {
	v := newTestView(&mockQueryService{}, &mockFeedbackService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlU})

	assert.Nil(t, cmd)
}

func TestView_RateWithoutFeedbackService(t *testing.T) {
	v := newTestView(&mockQueryService{result: testResult()}, nil)
	v.feedbackService = nil

	typeText(v, "q")
	v.Update(enter(v)())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Nil(t, v.Turns()[0].Rating)
	assert.Equal(t, status.StateError, v.StatusBar().State())
}

func TestView_ToggleSources(t *testing.T) {
	v := newTestView(&mockQueryService{result: testResult()}, nil)

	typeText(v, "q")
	v.Update(enter(v)())
	require.Contains(t, v.View(), "[1]")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.NotContains(t, v.View(), "[1]")
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newTestView(&mockQueryService{}, nil)

	v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Equal(t, "boom", v.StatusBar().Message())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil, nil, testCollection())

	v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 100, v.width)
	assert.Equal(t, 23, v.viewport.Height)
	assert.Contains(t, v.View(), "handbook")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t\tc"))

	long := preview(string(make([]rune, sourcePreviewLength+5)))
	assert.Len(t, []rune(long), sourcePreviewLength+3)
}
