package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/applypilot/internal/model"
)

// Item pairs a detected question with its resolved answer for review.
type Item struct {
	Question model.ScreeningQuestion
	Answer   *model.GeneratedAnswer
	Accepted bool
}

// Result is what the review session decided.
type Result struct {
	// Accepted holds the question ids whose answers should be filled.
	Accepted map[string]bool
	// Aborted is true when the user quit without confirming.
	Aborted bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(1, 0, 1, 2)

	itemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	acceptedMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")) // green

	rejectedMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")) // red

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

type reviewModel struct {
	items  []Item
	cursor int
	view   viewState

	detailViewport viewport.Model
	width          int
	height         int
	ready          bool

	confirmed bool
	wantQuit  bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detailViewport = viewport.New(msg.Width-4, msg.Height-6)
		m.ready = true
		if m.view == viewDetail {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.items[m.cursor].Answer != nil {
			m.items[m.cursor].Accepted = !m.items[m.cursor].Accepted
		}
	case "a":
		for i := range m.items {
			if m.items[i].Answer != nil {
				m.items[i].Accepted = true
			}
		}
	case "n":
		for i := range m.items {
			m.items[i].Accepted = false
		}
	case "enter":
		if m.ready {
			m.view = viewDetail
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.GotoTop()
		}
	case "c":
		m.confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case " ", "x":
		if m.items[m.cursor].Answer != nil {
			m.items[m.cursor].Accepted = !m.items[m.cursor].Accepted
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) View() string {
	if m.view == viewDetail {
		return m.viewDetailScreen()
	}
	return m.viewListScreen()
}

func (m reviewModel) viewListScreen() string {
	s := titleStyle.Render("Review answers before filling")
	s += "\n"

	for i, item := range m.items {
		mark := rejectedMarkStyle.Render("✗")
		if item.Accepted {
			mark = acceptedMarkStyle.Render("✓")
		}
		if item.Answer == nil {
			mark = badgeStyle.Render("—")
		}

		label := fmt.Sprintf("%s %s %s", mark, truncateLine(item.Question.Question, 60), badge(item))
		if i == m.cursor {
			s += selectedItemStyle.Render("> "+label) + "\n"
		} else {
			s += itemStyle.Render(label) + "\n"
		}
	}

	s += hintStyle.Render("↑/↓ navigate  space toggle  a all  n none  enter detail  c confirm  q quit")
	return s
}

func (m reviewModel) viewDetailScreen() string {
	header := titleStyle.Render(truncateLine(m.items[m.cursor].Question.Question, m.width-6))
	hint := hintStyle.Render("↑/↓ scroll  space toggle  esc back  q quit")
	return header + "\n" + m.detailViewport.View() + "\n" + hint
}

func (m reviewModel) renderDetail() string {
	item := m.items[m.cursor]
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", detailLabelStyle.Render("Type:"), item.Question.Type)
	if item.Question.Required {
		fmt.Fprintf(&b, "%s yes\n", detailLabelStyle.Render("Required:"))
	}
	if item.Question.MaxLength > 0 {
		fmt.Fprintf(&b, "%s %d chars\n", detailLabelStyle.Render("Max length:"), item.Question.MaxLength)
	}

	if item.Answer == nil {
		b.WriteString("\nNo answer was generated for this question.\n")
		return b.String()
	}

	if item.Answer.FromCache {
		fmt.Fprintf(&b, "%s reused (similarity %.2f)\n", detailLabelStyle.Render("Source:"), item.Answer.Similarity)
	} else {
		fmt.Fprintf(&b, "%s generated (confidence %.2f)\n", detailLabelStyle.Render("Source:"), item.Answer.Confidence)
	}
	if item.Answer.UserEdited {
		fmt.Fprintf(&b, "%s yes\n", detailLabelStyle.Render("Edited:"))
	}

	state := "rejected"
	if item.Accepted {
		state = "accepted"
	}
	fmt.Fprintf(&b, "%s %s\n", detailLabelStyle.Render("Decision:"), state)

	b.WriteString("\n")
	b.WriteString(item.Answer.Answer)
	b.WriteString("\n")
	return b.String()
}

func badge(item Item) string {
	switch {
	case item.Answer == nil:
		return badgeStyle.Render("[no answer]")
	case item.Answer.FromCache:
		return badgeStyle.Render("[cached]")
	case item.Answer.UserEdited:
		return badgeStyle.Render("[edited]")
	default:
		return badgeStyle.Render("[generated]")
	}
}

func truncateLine(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Run shows the review screen and blocks until the user confirms or quits.
// Answers start out accepted; questions without answers cannot be accepted.
func Run(items []Item) (Result, error) {
	if len(items) == 0 {
		return Result{Accepted: map[string]bool{}}, nil
	}
	for i := range items {
		items[i].Accepted = items[i].Answer != nil
	}

	m := reviewModel{items: items}
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("review session: %w", err)
	}

	fm := final.(reviewModel)
	result := Result{Accepted: make(map[string]bool), Aborted: fm.wantQuit && !fm.confirmed}
	for _, item := range fm.items {
		if item.Accepted {
			result.Accepted[item.Question.ID] = true
		}
	}
	return result, nil
}
