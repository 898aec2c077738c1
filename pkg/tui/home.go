package tui

import (
	"fmt"
	"strings"

	"github.com/kcal-sh/kcal/pkg/record"
)

// The presentation layer is a pure function of controller state. Two
// mutually exclusive modes: the setup checklist until the client is
// initialized with permission, the record list after. Alerts and the
// permission confirm render as blocking overlays.

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Active Calories Burned") + "\n")
	b.WriteString(m.shell.BarView() + "\n\n")

	switch {
	case m.alert != "":
		b.WriteString(m.viewAlert())
	case m.setup.State() == StatePermissionDenied:
		b.WriteString(m.viewConfirm())
	case m.shell.ActiveName() != TabHome:
		b.WriteString(helpStyle.Render("Nothing to show on this tab yet.") + "\n")
	case m.setup.Ready():
		b.WriteString(m.viewReady())
	default:
		b.WriteString(m.viewSetup())
	}

	return b.String()
}

func (m Model) viewSetup() string {
	var b strings.Builder

	b.WriteString("Set up the health connection\n\n")
	b.WriteString(checkRow(m.setup.Initialized(), "Health client initialized"))
	b.WriteString(checkRow(m.setup.HasPermissions(), "Read permission for active calories"))

	if errText := m.setup.Err(); errText != "" {
		b.WriteString("\n" + errorStyle.Render(errText) + "\n")
	}

	b.WriteString("\n")
	label := m.setup.NextAction()
	if m.setup.Loading() {
		b.WriteString("  " + m.spinner.View() + " " + disabledStyle.Render(label) + "\n")
	} else {
		b.WriteString("  " + buttonStyle.Render("[ "+label+" ]") + "  press enter\n")
	}

	b.WriteString("\n" + helpStyle.Render("Active calories are read from the local health service.\nBoth steps must pass before any data is shown.") + "\n")
	return b.String()
}

func checkRow(done bool, label string) string {
	mark := checkTodoStyle.Render("✘")
	if done {
		mark = checkDoneStyle.Render("✔")
	}
	return fmt.Sprintf("  %s %s\n", mark, label)
}

func (m Model) viewReady() string {
	var b strings.Builder
	records := m.fetch.Records()

	if m.fetch.Loading() {
		b.WriteString(m.spinner.View() + " refreshing\n\n")
	} else {
		b.WriteString(fmt.Sprintf("Last 7 days, %d records\n\n", len(records)))
	}

	if len(records) == 0 {
		if !m.fetch.Loading() {
			b.WriteString(helpStyle.Render("No activity recorded in the last 7 days.") + "\n")
		}
	} else {
		b.WriteString(m.viewport.View() + "\n")
	}

	help := "r refresh · up/down scroll · esc back · q quit"
	if m.fetch.Loading() {
		help = "refresh disabled while loading"
	}
	b.WriteString("\n" + helpStyle.Render(help) + "\n")
	return b.String()
}

func (m Model) viewAlert() string {
	return alertStyle.Render(m.alert) + "\n\n" +
		helpStyle.Render("press enter to dismiss") + "\n"
}

func (m Model) viewConfirm() string {
	return alertStyle.Render("Permission was denied.\nTry requesting it again?") + "\n\n" +
		helpStyle.Render("[y] retry   [n] cancel") + "\n"
}

// renderRecordList renders one card per record, in the order the
// platform returned them.
func renderRecordList(records []record.CalorieRecord) string {
	cards := make([]string, 0, len(records))
	for i, r := range records {
		cards = append(cards, renderCard(i, r))
	}
	return strings.Join(cards, "\n")
}

func renderCard(i int, r record.CalorieRecord) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("#%d  %s\n", i+1, record.FormatDate(r.StartTime)))
	b.WriteString(record.FormatKilocalories(r.Energy) + "  " + record.FormatKilojoules(r.Energy) + "\n")
	b.WriteString(record.FormatTimeRange(r.StartTime, r.EndTime))
	if r.Metadata.DataOrigin != "" {
		b.WriteString("  " + originStyle.Render(r.Metadata.DataOrigin))
	}

	return cardStyle.Render(b.String())
}
