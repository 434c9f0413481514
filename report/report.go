package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"transfer_agents/models"
)

const (
	topTransfersLimit = 5
	topAgentsLimit    = 10
)

// nonAgentLabels are agent values that do not name an agency.
var nonAgentLabels = map[string]bool{
	"Relatives":    true,
	"Without Club": true,
}

// Transfer is a transfer with its fee in millions of euros.
type Transfer struct {
	models.TransferRecord
	FeeMillions float64
}

// AgentTotal is the summed deal value handled by one agent.
type AgentTotal struct {
	Name          string
	Deals         int
	ValueMillions float64
}

// Summary holds the key numbers of a transfer window.
type Summary struct {
	Arrivals      int
	Departures    int
	TotalSpending float64
	TotalIncome   float64
	NetSpend      float64
	TopTransfers  []Transfer
	TopAgents     []AgentTotal
}

// Summarize computes key numbers from the stored transfers.
func Summarize(records []models.TransferRecord) Summary {
	var s Summary
	var arrivals []Transfer
	byAgent := make(map[string]*AgentTotal)

	for _, r := range records {
		fee := ParseFee(r.Fee)

		switch r.Type {
		case models.DirectionArrival:
			s.Arrivals++
			s.TotalSpending += fee
			arrivals = append(arrivals, Transfer{TransferRecord: r, FeeMillions: fee})
		case models.DirectionDeparture:
			s.Departures++
			s.TotalIncome += fee
		}

		if !countsAsAgent(r.Agent) {
			continue
		}
		total, ok := byAgent[r.Agent.Name]
		if !ok {
			total = &AgentTotal{Name: r.Agent.Name}
			byAgent[r.Agent.Name] = total
		}
		total.Deals++
		total.ValueMillions += fee
	}
	s.NetSpend = s.TotalIncome - s.TotalSpending

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].FeeMillions > arrivals[j].FeeMillions
	})
	s.TopTransfers = head(arrivals, topTransfersLimit)

	agents := make([]AgentTotal, 0, len(byAgent))
	for _, a := range byAgent {
		agents = append(agents, *a)
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].ValueMillions != agents[j].ValueMillions {
			return agents[i].ValueMillions > agents[j].ValueMillions
		}
		return agents[i].Name < agents[j].Name
	})
	s.TopAgents = head(agents, topAgentsLimit)

	return s
}

func countsAsAgent(o models.AgentOutcome) bool {
	return !o.IsSentinel() && !nonAgentLabels[o.Name]
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Write renders the summary as plain text tables.
func Write(w io.Writer, s Summary) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	label := r.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	border := r.NewStyle().Foreground(lipgloss.Color("#06B6D4"))

	numbers := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers("Total Spending", "Total Income", "Net Spend", "Arrivals", "Departures").
		Row(millions(s.TotalSpending), millions(s.TotalIncome), millions(s.NetSpend),
			fmt.Sprint(s.Arrivals), fmt.Sprint(s.Departures))

	transfers := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers("Player", "From", "Fee")
	for _, t := range s.TopTransfers {
		transfers.Row(t.Player, t.FromClub, t.Fee)
	}

	agents := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers("Agent", "Deals", "Total Value")
	for _, a := range s.TopAgents {
		agents.Row(a.Name, fmt.Sprint(a.Deals), millions(a.ValueMillions))
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		title.Render("Key Numbers"),
		numbers.Render(),
		"",
		title.Render(fmt.Sprintf("Top %d Biggest Transfers", topTransfersLimit)),
		emptyOr(transfers.Render(), len(s.TopTransfers), label),
		"",
		title.Render(fmt.Sprintf("Top %d Agents", topAgentsLimit)),
		emptyOr(agents.Render(), len(s.TopAgents), label),
	)

	_, err := fmt.Fprintln(w, out)
	return err
}

func emptyOr(rendered string, rows int, style lipgloss.Style) string {
	if rows == 0 {
		return style.Render("(none)")
	}
	return rendered
}

func millions(v float64) string {
	return fmt.Sprintf("€%.2fM", v)
}
