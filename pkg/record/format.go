package record

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display formatting for records. Kilocalories render with locale-aware
// digit grouping, kilojoules with a fixed two decimals.

var printer = message.NewPrinter(language.English)

// FormatKilocalories renders an energy as kilocalories with grouping
// separators and no fixed decimal count, e.g. "1,234.5 kcal".
func FormatKilocalories(e Energy) string {
	return printer.Sprintf("%v kcal", e.Kilocalories)
}

// FormatKilojoules renders an energy as kilojoules with two decimals,
// e.g. "5000.00 kJ".
func FormatKilojoules(e Energy) string {
	return fmt.Sprintf("%.2f kJ", e.Kilojoules)
}

// FormatDate renders the calendar date of a timestamp, in the
// timestamp's own zone.
func FormatDate(t time.Time) string {
	return t.Format("Mon, Jan 2 2006")
}

// FormatTimeOfDay renders a wall-clock time, e.g. "9:41AM".
func FormatTimeOfDay(t time.Time) string {
	return t.Format(time.Kitchen)
}

// FormatTimeRange renders the start and end of an interval as a
// wall-clock range, e.g. "9:41AM - 10:05AM".
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s - %s", FormatTimeOfDay(start), FormatTimeOfDay(end))
}
