package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
)

// ConferenceLocation is the zone session times are given in upstream.
var ConferenceLocation = mustLoadLocation("Europe/Oslo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

const (
	defaultProgramURLPattern = "https://{year}.javazone.no/program/{id}"
	unknownPictureURL        = "https://icons.getbootstrap.com/assets/icons/question-circle.svg"
)

// programURLPatterns holds years whose program site moved.
var programURLPatterns = map[int]string{
	2025: "https://2025.javazone.no/en/program/{id}",
}

// upstream uses zone-less local times; offsets are accepted too
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"20060102T150405",
}

type Speaker struct {
	Name       string `json:"name"`
	Bio        string `json:"bio,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

// Session is a typed view over a stored session snapshot.
type Session struct {
	ID                    uuid.UUID  `json:"id"`
	ConferenceID          string     `json:"conferenceId,omitempty"`
	Title                 string     `json:"title"`
	Abstract              string     `json:"abstract"`
	IntendedAudience      string     `json:"intendedAudience,omitempty"`
	Format                string     `json:"format,omitempty"`
	Language              string     `json:"language,omitempty"`
	Length                int        `json:"length,omitempty"`
	WorkshopPrerequisites string     `json:"workshopPrerequisites,omitempty"`
	Room                  string     `json:"room,omitempty"`
	StartTime             *time.Time `json:"startTime,omitempty"`
	EndTime               *time.Time `json:"endTime,omitempty"`
	StartSlot             *time.Time `json:"startSlot,omitempty"`
	RegisterLoc           string     `json:"registerLoc,omitempty"`
	Video                 string     `json:"video,omitempty"`
	Speakers              []Speaker  `json:"speakers"`
}

type sessionJSON struct {
	ID                    string          `json:"id"`
	SessionID             string          `json:"sessionId"`
	ConferenceID          string          `json:"conferenceId"`
	Title                 string          `json:"title"`
	Abstract              string          `json:"abstract"`
	IntendedAudience      string          `json:"intendedAudience"`
	Format                string          `json:"format"`
	Language              string          `json:"language"`
	Length                json.RawMessage `json:"length"`
	WorkshopPrerequisites string          `json:"workshopPrerequisites"`
	Room                  string          `json:"room"`
	StartTime             string          `json:"startTime"`
	EndTime               string          `json:"endTime"`
	StartSlot             string          `json:"startSlot"`
	RegisterLoc           string          `json:"registerLoc"`
	Video                 json.RawMessage `json:"video"`
	Speakers              []Speaker       `json:"speakers"`
}

// UnmarshalJSON accepts the upstream record shape. Empty strings for
// optional fields mean "not set".
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idStr := raw.ID
	if idStr == "" {
		idStr = raw.SessionID
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", idStr, err)
	}

	out := Session{
		ID:                    id,
		ConferenceID:          raw.ConferenceID,
		Title:                 raw.Title,
		Abstract:              raw.Abstract,
		IntendedAudience:      raw.IntendedAudience,
		Format:                raw.Format,
		Language:              raw.Language,
		WorkshopPrerequisites: raw.WorkshopPrerequisites,
		Room:                  raw.Room,
		RegisterLoc:           raw.RegisterLoc,
		Speakers:              raw.Speakers,
	}

	if out.Length, err = lenientInt(raw.Length); err != nil {
		return fmt.Errorf("invalid length: %w", err)
	}
	if out.Video, err = lenientString(raw.Video); err != nil {
		return fmt.Errorf("invalid video: %w", err)
	}
	if out.StartTime, err = ParseTime(raw.StartTime); err != nil {
		return fmt.Errorf("invalid startTime: %w", err)
	}
	if out.EndTime, err = ParseTime(raw.EndTime); err != nil {
		return fmt.Errorf("invalid endTime: %w", err)
	}
	if out.StartSlot, err = ParseTime(raw.StartSlot); err != nil {
		return fmt.Errorf("invalid startSlot: %w", err)
	}

	*s = out
	return nil
}

// ParseSession decodes a stored snapshot.
func ParseSession(data string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &s, nil
}

// ParseTime parses an upstream timestamp. Zone-less values are conference
// local time. An empty string yields nil.
func ParseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, v)
		} else {
			t, err = time.ParseInLocation(layout, v, ConferenceLocation)
		}
		if err == nil {
			t = t.In(ConferenceLocation)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised time %q", v)
}

func lenientInt(raw json.RawMessage) (int, error) {
	s, err := lenientString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	return strconv.Atoi(s)
}

// lenientString reads a JSON string or number as text; null and "" are empty.
func lenientString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// HasTimes reports whether the session is scheduled. Invitations need both.
func (s *Session) HasTimes() bool {
	return s.StartTime != nil && s.EndTime != nil
}

func (s *Session) VideoURL() string {
	if s.Video == "" {
		return ""
	}
	return "https://vimeo.com/" + s.Video
}

func (s *Session) LanguageName() string {
	switch s.Language {
	case "en":
		return "English"
	case "no":
		return "Norwegian"
	}
	return s.Language
}

// StartLabel returns the start time as HH:MM, or TBA.
func (s *Session) StartLabel() string {
	if s.StartTime == nil {
		return "TBA"
	}
	return s.StartTime.Format("15:04")
}

// Duration formats the scheduled length as "1 hours and 15 min".
func (s *Session) Duration() string {
	if !s.HasTimes() {
		return ""
	}
	d := s.EndTime.Sub(*s.StartTime)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 {
		if hours > 0 {
			parts = append(parts, "and")
		}
		parts = append(parts, fmt.Sprintf("%d min", minutes))
	}
	return strings.Join(parts, " ")
}

func (s *Session) SpeakerNames() []string {
	names := make([]string, 0, len(s.Speakers))
	for _, sp := range s.Speakers {
		names = append(names, sp.Name)
	}
	return names
}

// ProgramURL links to the session on the conference program site.
func (s *Session) ProgramURL(year int) string {
	pattern, ok := programURLPatterns[year]
	if !ok {
		pattern = defaultProgramURLPattern
	}
	return strings.NewReplacer("{year}", strconv.Itoa(year), "{id}", s.ID.String()).Replace(pattern)
}

// CalendarDescription is the body text of calendar events for the session.
func (s *Session) CalendarDescription(year int) string {
	room := s.Room
	if room == "" {
		room = "TBA"
	}
	video := s.VideoURL()
	if video == "" {
		video = "Not yet available"
	}

	var b strings.Builder
	b.WriteString(s.Abstract)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Speakers: %s\n", strings.Join(s.SpeakerNames(), ", "))
	fmt.Fprintf(&b, "Room: %s\n", room)
	fmt.Fprintf(&b, "Video: %s\n", video)
	b.WriteString("\n")
	fmt.Fprintf(&b, "More info: %s\n", s.ProgramURL(year))
	return b.String()
}

// User is an authenticated attendee.
type User struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

// Picture falls back to a placeholder icon.
func (u User) Picture() string {
	if u.PictureURL != "" {
		return u.PictureURL
	}
	return unknownPictureURL
}

// SessionWithUsers is a session together with the users who joined it.
type SessionWithUsers struct {
	*Session
	Users []User `json:"users"`
}
