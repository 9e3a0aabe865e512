package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/foodchain/internal/app"
	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/qr"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ model.Item }

func (i listItem) Title() string       { return i.Label() }
func (i listItem) Description() string { return i.Origin }
func (i listItem) FilterValue() string { return i.Name + " " + i.Origin }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	line := fmt.Sprintf("%s %s  %s  %s",
		mutedStyle.Render(fmt.Sprintf("%3d.", it.ID)),
		it.Name,
		accentStyle.Render("From: "+it.Origin),
		mutedStyle.Render("Added: "+it.Added()))
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

type op int

const (
	opConnect op = iota
	opRefresh
	opSubmit
)

// opDoneMsg reports that a ledger call started by the model has returned.
type opDoneMsg struct {
	op        op
	submitted bool
}

// Model is the bubbletea front end over an app.Controller.
type Model struct {
	ctx  context.Context
	ctrl *app.Controller
	keys keyMap

	list    list.Model
	spinner spinner.Model
	pending int

	// add form
	adding bool
	inputs [2]textinput.Model
	focus  int

	scan textinput.Model

	qrText string
	qrArt  string

	width, height int
}

func newInput(prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// New builds the model. Nothing touches the ledger until Init runs.
func New(ctx context.Context, ctrl *app.Controller) Model {
	keys := defaultKeys()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.KeyMap.Quit = keys.Quit
	l.KeyMap.GoToStart = key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "go to start"))
	l.AdditionalShortHelpKeys = keys.listHelp
	l.AdditionalFullHelpKeys = keys.listHelp

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle))

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    keys,
		list:    l,
		spinner: sp,
		pending: 1, // the load started by Init
		scan:    newInput("> ", "paste scanned text or an image path"),
		width:   80,
		height:  24,
	}
	m.scan.CharLimit = 4096
	m.inputs[0] = newInput("Name:   ", "Apple Batch #123")
	m.inputs[1] = newInput("Origin: ", "California, USA")
	m.resize()
	m.sync()
	return m
}

// Init connects the wallet and loads the list, like opening the page does.
func (m Model) Init() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return tea.Batch(func() tea.Msg {
		ctrl.Connect(ctx)
		ctrl.Refresh(ctx)
		return opDoneMsg{op: opConnect}
	}, m.spinner.Tick)
}

func (m *Model) start(o op, fn func() bool) tea.Cmd {
	m.pending++
	return tea.Batch(func() tea.Msg {
		return opDoneMsg{op: o, submitted: fn()}
	}, m.spinner.Tick)
}

func (m *Model) refresh() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return m.start(opRefresh, func() bool {
		ctrl.Refresh(ctx)
		return false
	})
}

func (m *Model) submit() tea.Cmd {
	if m.pending > 0 {
		return nil
	}
	m.ctrl.SetItemName(m.inputs[0].Value())
	m.ctrl.SetOrigin(m.inputs[1].Value())
	ctx, ctrl := m.ctx, m.ctrl
	return m.start(opSubmit, func() bool { return ctrl.Submit(ctx) })
}

// sync pulls the controller's state into the widgets.
func (m *Model) sync() tea.Cmd {
	s := m.ctrl.State()
	m.list.Title = m.header(s)
	items := make([]list.Item, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, listItem{it})
	}
	cmd := m.list.SetItems(items)

	if s.ShowQRModal && s.CurrentQR != m.qrText {
		m.qrText = s.CurrentQR
		art, err := qr.Terminal(s.CurrentQR)
		if err != nil {
			art = errorStyle.Render(err.Error())
		}
		m.qrArt = art
	}
	return cmd
}

func (m Model) header(s app.State) string {
	acct := mutedStyle.Render("not connected")
	if s.Account != "" {
		acct = s.Account
	}
	return fmt.Sprintf("%s   %s %s   %s %d",
		titleStyle.Render("FoodChain Tracker"),
		accentStyle.Render("Account:"), acct,
		accentStyle.Render("Items:"), len(s.Items))
}

func (m *Model) resize() {
	h := m.height - 4
	if m.adding {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) openForm() {
	m.adding = true
	m.focus = 0
	m.inputs[0].Focus()
	m.inputs[1].Blur()
	m.resize()
}

func (m *Model) closeForm() {
	m.adding = false
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.resize()
}

// scanInput accepts either the decoded text itself or the path of an image holding the code.
func (m *Model) scanInput(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if !strings.HasPrefix(v, "{") {
		if f, err := os.Open(v); err == nil {
			m.ctrl.HandleScanImage(f)
			f.Close()
			return
		}
	}
	m.ctrl.HandleScan(v)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case opDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.op == opSubmit && msg.submitted && m.ctrl.State().ItemName == "" {
			m.closeForm()
		}
		return m, m.sync()

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.ctrl.State()
	k := msg.String()

	// modals, topmost first
	switch {
	case s.Alert != "":
		if k == "enter" || k == "esc" || k == " " {
			m.ctrl.DismissAlert()
		}
		return m, nil

	case s.Scanned != nil:
		if k == "enter" || k == "esc" {
			m.ctrl.CloseScanned()
		}
		return m, nil

	case s.ShowQRModal:
		if k == "enter" || k == "esc" || k == "g" {
			m.ctrl.CloseQR()
		}
		return m, nil

	case s.ShowScanner:
		switch {
		case key.Matches(msg, m.keys.Close):
			m.ctrl.CloseScanner()
			m.scan.SetValue("")
			m.scan.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			m.scanInput(m.scan.Value())
			if !m.ctrl.State().ShowScanner {
				m.scan.SetValue("")
				m.scan.Blur()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.scan, cmd = m.scan.Update(msg)
		return m, cmd
	}

	if m.adding {
		switch {
		case key.Matches(msg, m.keys.Close):
			m.closeForm()
			return m, nil
		case key.Matches(msg, m.keys.Next):
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			m.inputs[m.focus].Focus()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}

	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		m.openForm()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.QR):
		if it, ok := m.list.SelectedItem().(listItem); ok {
			m.ctrl.ShowQR(it.ID)
			m.sync()
		}
		return m, nil
	case key.Matches(msg, m.keys.Scan):
		m.ctrl.OpenScanner()
		m.scan.Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := m.ctrl.State()

	if box := m.modal(s); box != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	content := m.list.View()
	if m.adding {
		title := titleStyle.Render("Add new item")
		if m.pending > 0 {
			title += "  " + m.spinner.View() + pendingStyle.Render(" waiting for confirmation")
		}
		form := title + "\n" + m.inputs[0].View() + "\n" + m.inputs[1].View()
		content += "\n" + frameStyle.Render(form)
	} else if m.pending > 0 {
		content += "\n" + m.spinner.View() + pendingStyle.Render(" working")
	}
	return frameStyle.Render(content)
}

func (m Model) modal(s app.State) string {
	switch {
	case s.Alert != "":
		style := successStyle
		if !strings.HasPrefix(s.Alert, "Item added!") {
			style = errorStyle
		}
		return modalStyle.Render(style.Render(s.Alert) + "\n\n" + helpStyle.Render("enter: ok"))

	case s.Scanned != nil:
		p := s.Scanned
		lines := []string{
			titleStyle.Render("Scanned Item Details"),
			"",
			accentStyle.Render("ID:       ") + fmt.Sprint(p.ID),
			accentStyle.Render("Name:     ") + p.Name,
			accentStyle.Render("Origin:   ") + p.Origin,
			accentStyle.Render("Contract: ") + p.ContractAddress,
			"",
			helpStyle.Render("esc: close"),
		}
		return modalStyle.Render(strings.Join(lines, "\n"))

	case s.ShowQRModal:
		return modalStyle.Render(titleStyle.Render("Item QR Code") + "\n\n" +
			qrStyle.Render(m.qrArt) + "\n\n" + helpStyle.Render("esc: close"))

	case s.ShowScanner:
		return modalStyle.Render(titleStyle.Render("Scan QR Code") + "\n\n" +
			m.scan.View() + "\n\n" + helpStyle.Render("enter: decode  esc: cancel"))
	}
	return ""
}

// Run starts the program on the alternate screen and blocks until the user quits
// or ctx is cancelled.
func Run(ctx context.Context, ctrl *app.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, ctrl), opts...)
	_, err := p.Run()
	return err
}
