package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const calendarProductID = "-//study-plan-api//planner//EN"

// CalendarEvent is a single VEVENT entry.
type CalendarEvent struct {
	UID         string
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
	Categories  []string
}

// ICSExporter renders calendar events as an iCalendar (RFC 5545) document.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// Render writes a VCALENDAR containing one VEVENT per event. Times are emitted in UTC.
func (e *ICSExporter) Render(calendarName string, events []CalendarEvent) ([]byte, error) {
	stamp := e.now().UTC()

	cal := ics.NewCalendar()
	cal.SetProductId(calendarProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if calendarName != "" {
		cal.SetXWRCalName(calendarName)
	}

	for i, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event %d missing uid", i)
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		for _, category := range ev.Categories {
			vevent.AddProperty(ics.ComponentPropertyCategories, ics.ToText(category))
		}
	}
	return []byte(cal.Serialize()), nil
}
