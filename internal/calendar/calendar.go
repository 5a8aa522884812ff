package calendar

import (
	"errors"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"javazone-calendar/internal/model"
)

// ProductID identifies calendars produced by this service.
const ProductID = "-//JavaZone Calendar Manager//javazone.ibidem.no//"

// ErrNotScheduled is returned for invitations to sessions without start or end time.
var ErrNotScheduled = errors.New("session has no start or end time")

// Document is a rendered calendar and the iTIP method it carries.
type Document struct {
	Method ics.Method
	Body   []byte
}

// ContentType is the MIME type mail clients expect for the document.
func (d Document) ContentType() string {
	return "text/calendar; method=" + string(d.Method)
}

// Builder renders sessions as calendars.
type Builder struct {
	year      int
	publicURL string
	now       func() time.Time
}

// NewBuilder creates a Builder. publicURL is the externally reachable base
// of the API, used for the leave link in invitations; it may be empty.
func NewBuilder(year int, publicURL string) *Builder {
	return &Builder{
		year:      year,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// WithClock replaces the DTSTAMP time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Invite renders a REQUEST for one attendee, with a reminder 15 minutes
// before start.
func (b *Builder) Invite(s *model.Session, attendee string) (Document, error) {
	if !s.HasTimes() {
		return Document{}, ErrNotScheduled
	}

	cal := b.newCalendar(ics.MethodRequest)
	event := b.addEvent(cal, s, b.leaveDescription(s))
	event.SetProperty(ics.ComponentPropertyPriority, strconv.Itoa(5))
	event.SetTimeTransparency(ics.TransparencyOpaque)
	event.SetStatus(ics.ObjectStatusConfirmed)
	addAttendee(event, attendee)

	alarm := event.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder")
	alarm.SetTrigger("-PT15M", &ics.KeyValues{Key: "RELATED", Value: []string{"START"}})

	return render(cal, ics.MethodRequest), nil
}

// Cancel renders a CANCEL for one attendee.
func (b *Builder) Cancel(s *model.Session, attendee string) Document {
	cal := b.newCalendar(ics.MethodCancel)
	event := b.addEvent(cal, s, s.CalendarDescription(b.year))
	event.SetProperty(ics.ComponentPropertyPriority, strconv.Itoa(1))
	event.SetTimeTransparency(ics.TransparencyTransparent)
	event.SetStatus(ics.ObjectStatusCancelled)
	addAttendee(event, attendee)

	return render(cal, ics.MethodCancel)
}

// Publish renders a feed of sessions, typically the ones a user joined.
func (b *Builder) Publish(sessions []*model.Session) Document {
	cal := b.newCalendar(ics.MethodPublish)
	cal.SetXWRCalName("JavaZone " + strconv.Itoa(b.year))
	for _, s := range sessions {
		b.addEvent(cal, s, s.CalendarDescription(b.year))
	}
	return render(cal, ics.MethodPublish)
}

func (b *Builder) newCalendar(method ics.Method) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(method)
	return cal
}

func (b *Builder) addEvent(cal *ics.Calendar, s *model.Session, description string) *ics.VEvent {
	event := cal.AddEvent(s.ID.String())
	event.SetDtStampTime(b.now())
	event.SetSummary(s.Title)
	event.SetClass(ics.ClassificationPublic)
	if s.StartTime != nil {
		event.SetStartAt(*s.StartTime)
	}
	if s.EndTime != nil {
		event.SetEndAt(*s.EndTime)
	}
	if s.Room != "" {
		event.SetLocation(s.Room)
	}
	event.SetURL(s.ProgramURL(b.year))
	event.SetDescription(description)
	return event
}

func (b *Builder) leaveDescription(s *model.Session) string {
	description := s.CalendarDescription(b.year)
	if b.publicURL == "" {
		return description
	}
	return description + "\n\nLeave here: " + b.publicURL + "/api/v1/sessions/" + s.ID.String() + "/leave"
}

func addAttendee(event *ics.VEvent, email string) {
	event.AddAttendee(email,
		ics.CalendarUserTypeIndividual,
		ics.ParticipationRoleReqParticipant,
		ics.ParticipationStatusNeedsAction,
		ics.WithRSVP(false),
	)
}

func render(cal *ics.Calendar, method ics.Method) Document {
	return Document{
		Method: method,
		Body:   []byte(cal.Serialize()),
	}
}
