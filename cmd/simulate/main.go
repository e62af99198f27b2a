/*
=================================================================================
SIMULATE CLI
=================================================================================

A small driver that wires the demo integrate-and-fire node into a
kernel.Context, runs it for a configurable duration, and shows live
progress (elapsed time, spike comm rounds, spikes delivered) with
bubbletea/lipgloss - grounded on the experiments/1.1-leaky-integration
module's own dependency on both for exactly this kind of live terminal
view over a running simulation.
=================================================================================
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SynapticNetworks/spike-kernel/config"
	"github.com/SynapticNetworks/spike-kernel/internal/demo"
	"github.com/SynapticNetworks/spike-kernel/kernel"
)

func main() {
	configPath := flag.String("config", "", "path to a kernel config file (yaml/json/toml)")
	durationMS := flag.Float64("duration", 100.0, "simulated duration in milliseconds")
	threads := flag.Int("threads", 1, "number of local threads")
	flag.Parse()

	defaults, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitFatalInvariant)
	}

	ctx := kernel.NewLocal(*threads)
	if err := ctx.SetKernelStatus(func(s *kernel.Status) {
		s.OffGridSpiking = defaults.OffGridSpiking
		s.AdaptiveSpikeBuffers = defaults.AdaptiveSpikeBuffers
		s.BufferSizeSpikeData = defaults.BufferSizeSpikeData
		s.BufferSizeTargetData = defaults.BufferSizeTargetData
	}); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitCodeFor(err))
	}

	demo.RegisterModels(ctx, ctx)

	a, err := ctx.Create(demo.NodeModel, 0, map[string]any{"threshold": 1.0, "tau": 10.0})
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitCodeFor(err))
	}
	b, err := ctx.Create(demo.NodeModel, 0, map[string]any{"threshold": 1.0, "tau": 10.0})
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitCodeFor(err))
	}
	if err := ctx.Connect(demo.ConnectionModel, a, 0, 0, 0, 1, map[string]any{"weight": 0.6, "target_gid": b}); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitCodeFor(err))
	}
	if err := ctx.Connect(demo.ConnectionModel, b, 0, 0, 1, 1, map[string]any{"weight": 0.6, "target_gid": a}); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitCodeFor(err))
	}

	m := newModel(ctx, *durationMS)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(kernel.ExitFatalInvariant)
	}
	os.Exit(kernel.ExitCodeFor(m.runErr))
}

type tickMsg time.Time

type model struct {
	ctx        *kernel.Context
	durationMS float64
	sliceMS    float64
	elapsedMS  float64
	runErr     error
	done       bool
}

func newModel(ctx *kernel.Context, durationMS float64) model {
	status := ctx.GetKernelStatus()
	sliceMS := status.Resolution * float64(status.TicsPerStep)
	if sliceMS <= 0 {
		sliceMS = 1
	}
	return model{ctx: ctx, durationMS: durationMS, sliceMS: sliceMS}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tea.KeyMsg:
		return m, tea.Quit
	case tickMsg:
		if m.done {
			return m, tea.Quit
		}
		step := m.durationMS - m.elapsedMS
		if step > m.sliceMS*8 {
			step = m.sliceMS * 8
		}
		if err := m.ctx.Simulate(context.Background(), step); err != nil {
			m.runErr = err
			m.done = true
			return m, tea.Quit
		}
		m.elapsedMS += step
		if m.elapsedMS >= m.durationMS {
			m.done = true
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func (m model) View() string {
	stats := m.ctx.Stats()
	return fmt.Sprintf(
		"%s\n%s %.1f/%.1f ms\n%s %d\n%s %d\n",
		headerStyle.Render("spike-kernel simulate"),
		statStyle.Render("elapsed:"), m.elapsedMS, m.durationMS,
		statStyle.Render("comm rounds (spike):"), stats.CommRoundsSpikeData,
		statStyle.Render("spikes delivered:"), stats.SpikesDelivered,
	)
}
