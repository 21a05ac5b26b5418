package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	stagekitprogress "github.com/stagekit-dev/stagekit/internal/progress"
)

func newAttachCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach a live dashboard to a running progress service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := stagekitprogress.Dial(addr)
			if err != nil {
				return fmt.Errorf("dial progress service at %s: %w", addr, err)
			}
			defer client.Close()

			p := tea.NewProgram(newAttachModel(client), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Progress service address (host:port)")
	cmd.MarkFlagRequired("addr") //nolint:errcheck

	return cmd
}

type tickMsg time.Time

type snapshotMsg struct {
	trackers []stagekitprogress.TrackerSnapshot
	err      error
}

type attachModel struct {
	client    *stagekitprogress.Client
	bars      map[string]progress.Model
	snapshots map[string]stagekitprogress.TrackerSnapshot
	err       error
}

func newAttachModel(client *stagekitprogress.Client) attachModel {
	return attachModel{
		client:    client,
		bars:      make(map[string]progress.Model),
		snapshots: make(map[string]stagekitprogress.TrackerSnapshot),
	}
}

func (m attachModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m attachModel) poll() tea.Cmd {
	return func() tea.Msg {
		reply, err := m.client.Send(stagekitprogress.Request{Command: stagekitprogress.CmdSnapshot})
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{trackers: reply.Trackers}
	}
}

func (m attachModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.poll(), tickCmd())
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		fresh := make(map[string]stagekitprogress.TrackerSnapshot, len(msg.trackers))
		for _, t := range msg.trackers {
			fresh[t.UUID] = t
			if _, ok := m.bars[t.UUID]; !ok {
				m.bars[t.UUID] = progress.New(progress.WithDefaultGradient())
			}
		}
		for uuid := range m.bars {
			if _, ok := fresh[uuid]; !ok {
				delete(m.bars, uuid)
			}
		}
		m.snapshots = fresh
	}
	return m, nil
}

func (m attachModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("attach error: %v\n(press q to quit)\n", m.err)
	}
	if len(m.snapshots) == 0 {
		return "no active stages\n(press q to quit)\n"
	}

	uuids := make([]string, 0, len(m.snapshots))
	for uuid := range m.snapshots {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var b strings.Builder
	for _, uuid := range uuids {
		t := m.snapshots[uuid]
		bar := m.bars[uuid]

		ratio := 0.0
		if t.Total != nil && *t.Total > 0 {
			ratio = float64(t.Current) / float64(*t.Total)
			if ratio > 1 {
				ratio = 1
			}
		}

		label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", t.Desc, t.Current))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, label, " ", bar.ViewAs(ratio)))
		b.WriteByte('\n')
	}
	b.WriteString("\n(press q to quit)\n")
	return b.String()
}
