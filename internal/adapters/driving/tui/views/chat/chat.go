// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// ErrNoQueryService is returned when a question is asked without a query service.
var ErrNoQueryService = errors.New("query service not available")

// ErrNoFeedbackService is returned when rating without a feedback service.
var ErrNoFeedbackService = errors.New("feedback not available")

// sourcePreviewLength bounds the chunk preview shown under an answer.
const sourcePreviewLength = 120

// Turn is one question and its answer.
type Turn struct {
	Question string
	Result   *domain.QueryResult
	Err      error
	Rating   *int
}

// View is the chat view: a scrolling transcript, a question box and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model

	queryService    driving.QueryService
	feedbackService driving.FeedbackService
	collection      *domain.Collection
	topK            int
	ctx             context.Context

	turns       []Turn
	pending     bool
	showSources bool
	width       int
	height      int
	ready       bool
}

// NewView creates a new chat view for one collection.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	queryService driving.QueryService,
	feedbackService driving.FeedbackService,
	collection *domain.Collection,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	if collection != nil {
		bar.SetCollection(collection.Name)
	}

	return &View{
		styles:          s,
		keymap:          km,
		input:           input.NewQuestionInput(s),
		statusbar:       bar,
		viewport:        viewport.New(80, 16),
		queryService:    queryService,
		feedbackService: feedbackService,
		collection:      collection,
		ctx:             context.Background(),
		showSources:     true,
		width:           80,
		height:          24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithTopK sets the number of chunks retrieved per question. Zero uses the
// service default.
func (v *View) WithTopK(k int) *View {
	v.topK = k
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.FeedbackSubmitted:
		v.handleFeedback(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.pending = false
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Submit):
		return v, v.submit()
	case key.Matches(msg, v.keymap.RateUp):
		return v, v.rate(1)
	case key.Matches(msg, v.keymap.RateNeutral):
		return v, v.rate(0)
	case key.Matches(msg, v.keymap.RateDown):
		return v, v.rate(-1)
	case key.Matches(msg, v.keymap.ToggleSources):
		v.showSources = !v.showSources
		v.refresh()
		return v, nil
	case key.Matches(msg, v.keymap.ScrollUp), key.Matches(msg, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question unless one is already in flight.
func (v *View) submit() tea.Cmd {
	question := v.input.Question()
	if question == "" || v.pending {
		return nil
	}

	v.pending = true
	v.input.Reset()
	v.statusbar.SetState(status.StateThinking)
	v.turns = append(v.turns, Turn{Question: question})
	v.refresh()

	return v.ask(question)
}

// ask runs the query off the update loop.
func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.queryService == nil || v.collection == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoQueryService}
		}

		result, err := v.queryService.Query(v.ctx, v.collection.ID, question, v.topK)
		return messages.AnswerReceived{Question: question, Result: result, Err: err}
	}
}

// handleAnswer attaches a result to the pending turn.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = false

	if n := len(v.turns); n > 0 && v.turns[n-1].Result == nil && v.turns[n-1].Err == nil {
		v.turns[n-1].Result = msg.Result
		v.turns[n-1].Err = msg.Err
	} else {
		v.turns = append(v.turns, Turn{Question: msg.Question, Result: msg.Result, Err: msg.Err})
	}

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else if msg.Result != nil {
		v.statusbar.SetAnswer(msg.Result.Model, msg.Result.Usage, msg.Result.Latency)
	}
	v.refresh()
}

// rate submits feedback on the most recent answer.
func (v *View) rate(rating int) tea.Cmd {
	turn := v.lastAnswered()
	if turn == nil {
		return nil
	}
	logID := turn.Result.LogID

	return func() tea.Msg {
		if v.feedbackService == nil {
			return messages.FeedbackSubmitted{LogID: logID, Rating: rating, Err: ErrNoFeedbackService}
		}
		err := v.feedbackService.SubmitFeedback(v.ctx, logID, rating, "")
		return messages.FeedbackSubmitted{LogID: logID, Rating: rating, Err: err}
	}
}

// handleFeedback records a rating on the matching turn.
func (v *View) handleFeedback(msg messages.FeedbackSubmitted) {
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	for i := range v.turns {
		if v.turns[i].Result != nil && v.turns[i].Result.LogID == msg.LogID {
			rating := msg.Rating
			v.turns[i].Rating = &rating
		}
	}
	v.statusbar.SetMessage(fmt.Sprintf("rated %+d", msg.Rating))
	v.refresh()
}

// lastAnswered returns the newest turn with a successful result.
func (v *View) lastAnswered() *Turn {
	for i := len(v.turns) - 1; i >= 0; i-- {
		if v.turns[i].Result != nil && v.turns[i].Err == nil {
			return &v.turns[i]
		}
	}
	return nil
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

// renderTranscript renders every turn.
func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about this collection.")
	}

	wrap := lipgloss.NewStyle().Width(max(20, v.width-4))
	blocks := make([]string, 0, len(v.turns))
	for i := range v.turns {
		blocks = append(blocks, v.renderTurn(&v.turns[i], wrap))
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderTurn(t *Turn, wrap lipgloss.Style) string {
	lines := []string{v.styles.Question.Render("> " + t.Question)}

	switch {
	case t.Err != nil:
		lines = append(lines, v.styles.Error.Render("Error: "+t.Err.Error()))
	case t.Result == nil:
		lines = append(lines, v.styles.Muted.Render("Thinking..."))
	default:
		lines = append(lines, v.styles.Answer.Render(wrap.Render(t.Result.Answer)))
		if v.showSources {
			for i, c := range t.Result.Chunks {
				lines = append(lines, v.styles.Source.Render(
					fmt.Sprintf("  [%d] %.3f %s", i+1, c.Distance, preview(c.Content)),
				))
			}
		}
		if t.Rating != nil {
			lines = append(lines, v.styles.Rating(*t.Rating).Render(fmt.Sprintf("  rated %+d", *t.Rating)))
		}
	}
	return strings.Join(lines, "\n")
}

// preview flattens and truncates chunk text for display.
func preview(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) > sourcePreviewLength {
		return string(runes[:sourcePreviewLength]) + "..."
	}
	return text
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	title := "kbase"
	if v.collection != nil {
		title += " · " + v.collection.Name
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render(title),
		"",
		v.viewport.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Title, two spacers, the bordered input and the status bar.
	const chrome = 7
	v.viewport.Width = width
	v.viewport.Height = max(3, height-chrome)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Input returns the question input.
func (v *View) Input() *input.QuestionInput {
	return v.input
}

// StatusBar returns the status bar.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}
