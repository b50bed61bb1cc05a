package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"agendash/internal/model"
)

const productID = "-//agendash//dashboard export//EN"

// Export renders events as an iCalendar document of all-day VEVENTs so the
// merged agenda can be subscribed to from any calendar client.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	stamp := now.UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + "@agendash")
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Title)
		ve.SetAllDayStartAt(ev.EventDate.Time(time.UTC))
		ve.SetAllDayEndAt(ev.EventDate.AddDays(1).Time(time.UTC))
		ve.SetProperty(ical.ComponentPropertyCategories, string(ev.Category))

		desc := ev.Description
		if ev.TimeRange != "" && ev.TimeRange != model.AllDayLabel {
			if desc != "" {
				desc = ev.TimeRange + "\n" + desc
			} else {
				desc = ev.TimeRange
			}
		}
		if desc != "" {
			ve.SetDescription(desc)
		}
	}
	return cal.Serialize()
}
