// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ledbridge/opcbridge/internal/ctlproto"
	"github.com/spf13/cobra"
)

const monitorPollInterval = time.Second

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal dashboard of per-output stats",
	Long: `Poll the admin control socket once a second and render a list of
outputs with their frame rate, drop counts, and connection state.

Select an output and press "r" to send a RECONNECT_OUTPUT admin
command for it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitorTUI(context.Background(), controlAddr)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// runMonitorTUI runs the dashboard until the user quits or ctx is
// cancelled. serve launches it inline on a terminal; the standalone
// "monitor" subcommand runs it against an already-running bridge.
func runMonitorTUI(ctx context.Context, addr string) error {
	p := tea.NewProgram(initialMonitorModel(addr))
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// outputItem adapts a ctlproto.OutputStat to bubbles/list's list.Item
// interface for the selectable output roster.
type outputItem struct {
	stat ctlproto.OutputStat
}

func (o outputItem) Title() string {
	state := "down"
	if o.stat.Connected {
		state = "up"
	}
	return fmt.Sprintf("%s [%s]", o.stat.Name, state)
}

func (o outputItem) Description() string {
	dropped := o.stat.DroppedReplaced + o.stat.DroppedShort
	return fmt.Sprintf("recv=%d written=%d dropped=%d errors=%d rate=%.1f/s",
		o.stat.Received, o.stat.Written, dropped, o.stat.WriteErrors, o.stat.FrameRate)
}

func (o outputItem) FilterValue() string { return o.stat.Name }

type monitorTickMsg time.Time

type monitorStatsMsg struct {
	outputs []ctlproto.OutputStat
	err     error
}

type monitorReconnectMsg struct {
	name string
	err  error
}

type monitorModel struct {
	addr       string
	outputList list.Model
	lastErr    error
	lastAction string
	width      int
	height     int
	quitting   bool
}

func initialMonitorModel(addr string) monitorModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 80, 16)
	l.Title = "Outputs"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return monitorModel{addr: addr, outputList: l, width: 100, height: 24}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(pollControlCmd(m.addr), monitorTickCmd())
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(monitorPollInterval, func(t time.Time) tea.Msg { return monitorTickMsg(t) })
}

func pollControlCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		outputs, err := queryStats(addr, 2*time.Second)
		return monitorStatsMsg{outputs: outputs, err: err}
	}
}

func reconnectCmd(addr, name string) tea.Cmd {
	return func() tea.Msg {
		err := sendReconnect(addr, name, 2*time.Second)
		return monitorReconnectMsg{name: name, err: err}
	}
}

// queryStats dials addr, sends a STATS_QUERY, and returns the decoded
// reply's outputs. Used by monitor's poll loop; probe has its own
// copy of the same dial-then-decode shape.
func queryStats(addr string, timeout time.Duration) ([]ctlproto.OutputStat, error) {
	pkt, err := roundTrip(addr, timeout, func() ([]byte, error) { return ctlproto.EncodeStatsQuery() })
	if err != nil {
		return nil, err
	}
	if pkt.Command == ctlproto.CmdError {
		e, _ := ctlproto.DecodeError(pkt)
		return nil, fmt.Errorf("control server: %s", e.Message)
	}
	reply, err := ctlproto.DecodeStatsReply(pkt)
	if err != nil {
		return nil, err
	}
	return reply.Outputs, nil
}

// sendReconnect requests a RECONNECT_OUTPUT for name and waits for the
// ACK/ERROR reply.
func sendReconnect(addr, name string, timeout time.Duration) error {
	pkt, err := roundTrip(addr, timeout, func() ([]byte, error) { return ctlproto.EncodeReconnectOutput(name) })
	if err != nil {
		return err
	}
	if pkt.Command == ctlproto.CmdError {
		e, _ := ctlproto.DecodeError(pkt)
		return fmt.Errorf("control server: %s", e.Message)
	}
	return nil
}

// roundTrip dials the control socket (unix first, tcp fallback), sends
// the bytes wire returns, and decodes the first reply packet.
func roundTrip(addr string, timeout time.Duration, wire func() ([]byte, error)) (ctlproto.Packet, error) {
	network := "unix"
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		network = "tcp"
		conn, err = net.DialTimeout(network, addr, timeout)
		if err != nil {
			return ctlproto.Packet{}, fmt.Errorf("dial %s: %w", addr, err)
		}
	}
	defer conn.Close()

	req, err := wire()
	if err != nil {
		return ctlproto.Packet{}, err
	}
	if _, err := conn.Write(req); err != nil {
		return ctlproto.Packet{}, fmt.Errorf("write request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	dec := ctlproto.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return ctlproto.Packet{}, fmt.Errorf("read reply: %w", err)
		}
		for i := 0; i < n; i++ {
			pkt, ok, decErr := dec.DecodeByte(buf[i])
			if decErr != nil {
				return ctlproto.Packet{}, decErr
			}
			if ok {
				return pkt, nil
			}
		}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "r":
			if item, ok := m.outputList.SelectedItem().(outputItem); ok {
				m.lastAction = fmt.Sprintf("reconnect requested: %s", item.stat.Name)
				return m, reconnectCmd(m.addr, item.stat.Name)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.outputList.SetSize(m.width-4, m.height-8)

	case monitorTickMsg:
		return m, tea.Batch(pollControlCmd(m.addr), monitorTickCmd())

	case monitorStatsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
			selected := m.outputList.Index()
			items := make([]list.Item, len(msg.outputs))
			for i, o := range msg.outputs {
				items[i] = outputItem{stat: o}
			}
			m.outputList.SetItems(items)
			if selected >= 0 && selected < len(items) {
				m.outputList.Select(selected)
			}
		}

	case monitorReconnectMsg:
		if msg.err != nil {
			m.lastAction = fmt.Sprintf("reconnect %s failed: %v", msg.name, msg.err)
		} else {
			m.lastAction = fmt.Sprintf("reconnect %s acknowledged", msg.name)
		}
	}

	var cmd tea.Cmd
	m.outputList, cmd = m.outputList.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("OPCBRIDGE MONITOR"))
	s.WriteString(headerStyle.Render(fmt.Sprintf(" | %s | q=quit r=reconnect", m.addr)))
	s.WriteString("\n\n")

	if m.lastErr != nil {
		s.WriteString(badStyle.Render(fmt.Sprintf("control connection error: %v", m.lastErr)))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(m.outputList.View()))

	if m.lastAction != "" {
		s.WriteString("\n")
		s.WriteString(infoStyle.Render(m.lastAction))
		s.WriteString("\n")
	}

	return s.String()
}
