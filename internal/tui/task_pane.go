package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/johnsonfarmsus/claw-conductor/internal/events"
)

// taskState tracks one scheduled task for display.
type taskState struct {
	ID          string
	Description string
	Category    string
	ExecutorID  string
	Status      string // "pending", "running", "completed", "failed", "blocked"
	Output      []string
	StartTime   time.Time
	Duration    time.Duration
}

// TaskPaneModel represents the task list and output viewport pane.
type TaskPaneModel struct {
	tasks       map[string]*taskState // task ID -> state
	taskOrder   []string              // insertion order for display
	selectedIdx int                   // which task is selected in the list
	viewport    viewport.Model        // scrollable output viewport
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates a new task pane model.
func NewTaskPaneModel() TaskPaneModel {
	vp := viewport.New(0, 0)
	return TaskPaneModel{
		tasks:    make(map[string]*taskState),
		viewport: vp,
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.taskOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			// Delegate other keys to viewport for scrolling
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.TaskScheduledEvent:
		if _, exists := m.tasks[msg.ID]; !exists {
			m.tasks[msg.ID] = &taskState{
				ID:          msg.ID,
				Description: msg.Description,
				Category:    msg.Category,
				Status:      "pending",
			}
			m.taskOrder = append(m.taskOrder, msg.ID)
			// Auto-select the first task
			if len(m.taskOrder) == 1 {
				m.selectedIdx = 0
				m.updateViewportContent()
			}
		}

	case events.TaskStartedEvent:
		task := m.ensure(msg.ID, msg.Description)
		task.Status = "running"
		task.ExecutorID = msg.ExecutorID
		task.StartTime = msg.Timestamp
		if m.getSelectedTaskID() == msg.ID {
			m.updateViewportContent()
		}

	case events.TaskBlockedEvent:
		task := m.ensure(msg.ID, msg.ID)
		task.Status = "blocked"
		task.Output = append(task.Output,
			fmt.Sprintf("[Blocked by failed dependencies: %s]", strings.Join(msg.FailedDeps, ", ")))
		if m.getSelectedTaskID() == msg.ID {
			m.updateViewportContent()
		}

	case events.TaskCompletedEvent:
		task := m.ensure(msg.ID, msg.ID)
		task.Status = "completed"
		task.Duration = msg.Duration
		task.Output = appendOutput(task.Output, msg.Output)
		task.Output = append(task.Output, fmt.Sprintf("\n[Completed in %v]", msg.Duration.Round(time.Millisecond)))
		if m.getSelectedTaskID() == msg.ID {
			m.updateViewportContent()
		}

	case events.TaskFailedEvent:
		task := m.ensure(msg.ID, msg.ID)
		task.Status = "failed"
		task.Duration = msg.Duration
		task.Output = appendOutput(task.Output, msg.Output)
		task.Output = append(task.Output, fmt.Sprintf("\n[Failed: %s]", msg.Error))
		if m.getSelectedTaskID() == msg.ID {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

// ensure returns the state for a task, creating it if the scheduled event
// was never seen.
func (m *TaskPaneModel) ensure(id, description string) *taskState {
	if task, exists := m.tasks[id]; exists {
		return task
	}
	task := &taskState{ID: id, Description: description, Status: "pending"}
	m.tasks[id] = task
	m.taskOrder = append(m.taskOrder, id)
	return task
}

// appendOutput splits a captured output blob into display lines.
func appendOutput(lines []string, output string) []string {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return lines
	}
	return append(lines, strings.Split(output, "\n")...)
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	// Split into two columns: task list (left) and viewport (right)
	listWidth := 25
	viewportWidth := m.width - listWidth - 4 // account for borders and padding

	listContent := m.renderTaskList(listWidth)
	viewportContent := m.viewport.View()

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listContent,
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(viewportContent),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderTaskList renders the task list column.
func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.taskOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, taskID := range m.taskOrder {
			task := m.tasks[taskID]
			icon := m.StatusIcon(task.Status)
			label := task.ID
			if len(label) > width-6 {
				label = label[:width-9] + "..."
			}

			line := fmt.Sprintf("%s %s", icon, label)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func (m TaskPaneModel) StatusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "completed":
		return StyleStatusComplete.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "blocked":
		return StyleStatusBlocked.Render("⊘")
	default:
		return StyleStatusPending.Render("○")
	}
}

// getSelectedTaskID returns the task ID of the currently selected task.
func (m TaskPaneModel) getSelectedTaskID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.taskOrder) {
		return m.taskOrder[m.selectedIdx]
	}
	return ""
}

// updateViewportContent updates the viewport with the selected task's output.
func (m *TaskPaneModel) updateViewportContent() {
	taskID := m.getSelectedTaskID()
	if taskID == "" {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}

	task, exists := m.tasks[taskID]
	if !exists {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}

	var header []string
	header = append(header, task.Description)
	if task.Category != "" {
		header = append(header, "Category: "+task.Category)
	}
	if task.ExecutorID != "" {
		header = append(header, "Executor: "+task.ExecutorID)
	}

	content := strings.Join(header, "\n") + "\n\n" + strings.Join(task.Output, "\n")
	m.viewport.SetContent(content)
	// Auto-scroll to bottom
	m.viewport.GotoBottom()
}

// resizeViewport resizes the viewport based on pane dimensions.
func (m *TaskPaneModel) resizeViewport() {
	listWidth := 25
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4 // account for borders

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
