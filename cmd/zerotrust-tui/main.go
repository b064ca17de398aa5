package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-zerotrust/pkg/activity"
	"github.com/dd0wney/cluso-zerotrust/pkg/attack"
	"github.com/dd0wney/cluso-zerotrust/pkg/engine"
	"github.com/dd0wney/cluso-zerotrust/pkg/simnet"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	eventBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	devicesView
	eventsView
)

const viewCount = 3

// eventLogSize bounds the in-memory live feed
const eventLogSize = 100

type keyMap struct {
	Tab         key.Binding
	ShiftTab    key.Binding
	Activity    key.Binding
	Traditional key.Binding
	ZeroTrust   key.Binding
	Reset       key.Binding
	Quit        key.Binding
	Up          key.Binding
	Down        key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Activity: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "activity"),
	),
	Traditional: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "traditional attack"),
	),
	ZeroTrust: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "zero-trust attack"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Activity, k.Traditional, k.ZeroTrust, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Activity, k.Traditional, k.ZeroTrust, k.Reset},
		{k.Up, k.Down, k.Quit},
	}
}

// client is a thin REST client for the simulator server
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) postJSON(path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", rdr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %s: %s", path, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// wireFrame is the websocket envelope pushed by the server
type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Messages

type tickMsg time.Time

type statusMsg engine.Status

type topologyMsg simnet.TopologyView

type ackMsg string

type errMsg struct{ err error }

type wsConnectedMsg struct{ ch <-chan tea.Msg }

type wsEventMsg wireFrame

type wsClosedMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	client      *client
	currentView view
	deviceTable table.Model
	help        help.Model
	keys        keyMap

	status   engine.Status
	topology simnet.TopologyView
	events   []string

	wsCh    <-chan tea.Msg
	wsAlive bool

	width      int
	height     int
	message    string
	messageErr bool
	startTime  time.Time
}

func initialModel(c *client) model {
	columns := []table.Column{
		{Title: "Device", Width: 16},
		{Title: "Type", Width: 12},
		{Title: "Trust", Width: 7},
		{Title: "Status", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return model{
		client:      c,
		currentView: dashboardView,
		deviceTable: t,
		help:        help.New(),
		keys:        keys,
		startTime:   time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchStatus(),
		m.fetchTopology(),
		m.connectFeed(),
		tickCmd(),
	)
}

// Commands

func (m model) fetchStatus() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var st engine.Status
		if err := c.getJSON("/api/network/status", &st); err != nil {
			return errMsg{err}
		}
		return statusMsg(st)
	}
}

func (m model) fetchTopology() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var topo simnet.TopologyView
		if err := c.getJSON("/api/network/topology", &topo); err != nil {
			return errMsg{err}
		}
		return topologyMsg(topo)
	}
}

func (m model) startActivity() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var ack engine.ActivityAck
		if err := c.postJSON("/api/simulate/activity", nil, &ack); err != nil {
			return errMsg{err}
		}
		return ackMsg(fmt.Sprintf("%s (%d requests)", ack.Status, ack.Requests))
	}
}

func (m model) startAttack(modelName string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var ack engine.AttackAck
		req := map[string]string{"model": modelName}
		if err := c.postJSON("/api/simulate/attack", req, &ack); err != nil {
			return errMsg{err}
		}
		return ackMsg(fmt.Sprintf("%s attack from %s", ack.Model, ack.EntryPoint))
	}
}

func (m model) resetNetwork() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var ack engine.ResetAck
		if err := c.postJSON("/api/reset", nil, &ack); err != nil {
			return errMsg{err}
		}
		return ackMsg(ack.Status)
	}
}

// connectFeed dials the websocket relay and pumps frames into a channel
// the update loop drains one message at a time.
func (m model) connectFeed() tea.Cmd {
	base := m.client.baseURL
	return func() tea.Msg {
		wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return errMsg{fmt.Errorf("live feed unavailable: %w", err)}
		}
		if resp != nil {
			resp.Body.Close()
		}

		ch := make(chan tea.Msg, 32)
		go func() {
			defer close(ch)
			defer conn.Close()
			for {
				var f wireFrame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				ch <- wsEventMsg(f)
			}
		}()
		return wsConnectedMsg{ch: ch}
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return wsClosedMsg{}
		}
		return msg
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tickCmd())

	case statusMsg:
		m.status = engine.Status(msg)

	case topologyMsg:
		m.topology = simnet.TopologyView(msg)
		m.refreshDeviceTable()

	case ackMsg:
		m.message = string(msg)
		m.messageErr = false

	case errMsg:
		m.message = msg.err.Error()
		m.messageErr = true

	case wsConnectedMsg:
		m.wsCh = msg.ch
		m.wsAlive = true
		return m, waitForEvent(m.wsCh)

	case wsEventMsg:
		m.applyFrame(wireFrame(msg))
		return m, waitForEvent(m.wsCh)

	case wsClosedMsg:
		m.wsAlive = false
		m.message = "live feed disconnected"
		m.messageErr = true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}

		case key.Matches(msg, m.keys.Activity):
			return m, m.startActivity()

		case key.Matches(msg, m.keys.Traditional):
			return m, m.startAttack("traditional")

		case key.Matches(msg, m.keys.ZeroTrust):
			return m, m.startAttack("zerotrust")

		case key.Matches(msg, m.keys.Reset):
			return m, m.resetNetwork()
		}
	}

	if m.currentView == devicesView {
		m.deviceTable, cmd = m.deviceTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// applyFrame folds one live frame into the model state
func (m *model) applyFrame(f wireFrame) {
	switch f.Event {
	case "connected":
		m.pushEvent("🔌 live feed connected")

	case "network_data":
		var topo simnet.TopologyView
		if err := json.Unmarshal(f.Data, &topo); err == nil {
			m.topology = topo
			m.refreshDeviceTable()
		}

	case "activity_update":
		var u activity.Update
		if err := json.Unmarshal(f.Data, &u); err != nil {
			return
		}
		m.status.Stats = u.Stats
		m.pushEvent(formatActivity(u))

	case "attack_update":
		m.applyAttackFrame(f.Data)

	case "network_reset":
		m.pushEvent("↺ network reset")
		m.status.Stats = activity.Snapshot{}
		m.markCompromised(nil)
	}
}

func (m *model) applyAttackFrame(data json.RawMessage) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return
	}

	switch peek.Type {
	case attack.TypeProgress:
		var p attack.Progress
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		m.markCompromised(p.CompromisedNodes)
		m.pushEvent(formatStep(p.Step))

	case attack.TypeComplete:
		var c attack.Complete
		if err := json.Unmarshal(data, &c); err != nil {
			return
		}
		m.pushEvent(fmt.Sprintf("🏁 %s attack finished: %d/%d compromised, containment %s",
			c.Results.Model, c.Results.CompromisedCount, c.Results.TotalNodes,
			c.Results.ContainmentEffectiveness))
	}
}

func formatActivity(u activity.Update) string {
	glyph := "✓"
	switch u.Decision {
	case "denied":
		glyph = "✗"
	case "challenged":
		glyph = "⚠"
	}
	return fmt.Sprintf("%s %s → %s: %s (%s)", glyph, u.User, u.Resource, u.Decision, u.Reason)
}

func formatStep(s attack.Step) string {
	if s.Result == attack.ResultSuccess {
		return fmt.Sprintf("⚡ %s → %s compromised", s.Source, s.Target)
	}
	return fmt.Sprintf("🛡 %s → %s blocked: %s", s.Source, s.Target, s.Reason)
}

func (m *model) pushEvent(line string) {
	stamp := time.Now().Format("15:04:05")
	m.events = append(m.events, fmt.Sprintf("%s  %s", stamp, line))
	if len(m.events) > eventLogSize {
		m.events = m.events[len(m.events)-eventLogSize:]
	}
}

// markCompromised flags exactly the listed devices as compromised.
// A nil list clears every flag.
func (m *model) markCompromised(ids []string) {
	hit := make(map[string]bool, len(ids))
	for _, id := range ids {
		hit[id] = true
	}
	for i := range m.topology.Nodes {
		m.topology.Nodes[i].IsCompromised = hit[m.topology.Nodes[i].ID]
	}
	m.refreshDeviceTable()
}

func (m *model) refreshDeviceTable() {
	rows := make([]table.Row, 0, len(m.topology.Nodes))
	for _, n := range m.topology.Nodes {
		status := "✓ clean"
		if n.IsCompromised {
			status = "✗ COMPROMISED"
		}
		rows = append(rows, table.Row{
			n.ID,
			n.Type,
			fmt.Sprintf("%.2f", n.TrustScore),
			status,
		})
	}
	m.deviceTable.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("🔐 Zero-Trust Simulator"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case devicesView:
		s.WriteString(m.renderDevices())
	case eventsView:
		s.WriteString(m.renderEvents())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Devices", "Events"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderDashboard() string {
	uptime := time.Since(m.startTime).Round(time.Second)

	feed := "offline"
	if m.wsAlive {
		feed = "live"
	}

	statsContent := fmt.Sprintf(`📊 Network
━━━━━━━━━━━━━━━━━━━
Devices:      %d
Compromised:  %d
Health:       %s
Feed:         %s
Uptime:       %s

🔐 Access Decisions
━━━━━━━━━━━━━━━━━━━
Allowed:      %d
Challenged:   %d
Denied:       %d
Total:        %d`,
		m.status.TotalDevices,
		m.status.CompromisedDevices,
		m.status.NetworkHealth,
		feed,
		uptime,
		m.status.Stats.Allowed,
		m.status.Stats.Challenged,
		m.status.Stats.Denied,
		m.status.Stats.TotalRequests,
	)

	quickActions := `⚡ Quick Actions
━━━━━━━━━━━━━━━━━━━
[a]     Simulate activity
[t]     Traditional attack
[z]     Zero-trust attack
[r]     Reset network
[Tab]   Switch view
[q]     Quit`

	statsBox := statsBoxStyle.Render(statsContent)
	actionsBox := statsBoxStyle.Render(quickActions)

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, statsBox, actionsBox),
	)
}

func (m model) renderDevices() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Device Inventory"))
	s.WriteString("\n\n")

	s.WriteString(m.deviceTable.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Navigate with ↑/↓ • Trust scores are fixed at configuration"))

	return contentStyle.Render(s.String())
}

func (m model) renderEvents() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Live Events"))
	s.WriteString("\n\n")

	if len(m.events) == 0 {
		s.WriteString(eventBoxStyle.Render("No events yet\n\nPress 'a' to simulate activity or 't'/'z' to launch an attack"))
		return contentStyle.Render(s.String())
	}

	shown := m.events
	if len(shown) > 15 {
		shown = shown[len(shown)-15:]
	}
	s.WriteString(eventBoxStyle.Render(strings.Join(shown, "\n")))

	return contentStyle.Render(s.String())
}

func main() {
	serverURL := flag.String("server", "http://localhost:5000", "Simulator server base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(newClient(*serverURL)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
