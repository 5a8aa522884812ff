package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionID = "5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a001"

func TestParseSession(t *testing.T) {
	s, err := ParseSession(`{
		"sessionId": "` + sessionID + `",
		"title": "Virtual threads in anger",
		"abstract": "Line one\nLine two",
		"room": "Room 7",
		"startTime": "2025-09-03T10:20",
		"endTime": "2025-09-03T11:20",
		"length": "60",
		"language": "no",
		"video": "",
		"speakers": [{"name": "Ada"}, {"name": "Grace"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, sessionID, s.ID.String())
	assert.Equal(t, 60, s.Length)
	assert.Empty(t, s.Video)
	assert.Empty(t, s.VideoURL())
	assert.Equal(t, "Norwegian", s.LanguageName())
	require.True(t, s.HasTimes())
	assert.Equal(t, ConferenceLocation, s.StartTime.Location())
	assert.Equal(t, time.Date(2025, 9, 3, 10, 20, 0, 0, ConferenceLocation), *s.StartTime)
	assert.Equal(t, "10:20", s.StartLabel())
	assert.Equal(t, "1 hours", s.Duration())
	assert.Equal(t, []string{"Ada", "Grace"}, s.SpeakerNames())
}

func TestParseSessionLenientFields(t *testing.T) {
	s, err := ParseSession(`{"id": "` + sessionID + `", "title": "t", "abstract": "a", "video": 12345, "length": 45, "speakers": []}`)
	require.NoError(t, err)

	assert.Equal(t, "https://vimeo.com/12345", s.VideoURL())
	assert.Equal(t, 45, s.Length)
	assert.False(t, s.HasTimes())
	assert.Equal(t, "TBA", s.StartLabel())
	assert.Empty(t, s.Duration())
}

func TestParseSessionErrors(t *testing.T) {
	tcases := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing id", data: `{"title": "t"}`},
		{name: "bad time", data: `{"id": "` + sessionID + `", "startTime": "tomorrow"}`},
		{name: "bad length", data: `{"id": "` + sessionID + `", "length": "long"}`},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSession(tc.data)
			assert.Error(t, err)
		})
	}
}

func TestParseTime(t *testing.T) {
	tcases := []struct {
		in   string
		want time.Time
	}{
		{in: "2025-09-03T09:00:00", want: time.Date(2025, 9, 3, 9, 0, 0, 0, ConferenceLocation)},
		{in: "2025-09-03T09:00", want: time.Date(2025, 9, 3, 9, 0, 0, 0, ConferenceLocation)},
		{in: "20250903T090000", want: time.Date(2025, 9, 3, 9, 0, 0, 0, ConferenceLocation)},
		{in: "2025-09-03T07:00:00Z", want: time.Date(2025, 9, 3, 9, 0, 0, 0, ConferenceLocation)},
	}

	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTime(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(*got), "got %s", got)
		})
	}

	got, err := ParseTime("")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDuration(t *testing.T) {
	start := time.Date(2025, 9, 3, 9, 0, 0, 0, ConferenceLocation)
	end := start.Add(75 * time.Minute)
	s := &Session{StartTime: &start, EndTime: &end}
	assert.Equal(t, "1 hours and 15 min", s.Duration())

	end = start.Add(20 * time.Minute)
	assert.Equal(t, "20 min", s.Duration())
}

func TestProgramURL(t *testing.T) {
	s, err := ParseSession(`{"id": "` + sessionID + `"}`)
	require.NoError(t, err)

	assert.Equal(t, "https://2025.javazone.no/en/program/"+sessionID, s.ProgramURL(2025))
	assert.Equal(t, "https://2024.javazone.no/program/"+sessionID, s.ProgramURL(2024))
}

func TestCalendarDescription(t *testing.T) {
	s, err := ParseSession(`{
		"id": "` + sessionID + `",
		"abstract": "Deep dive",
		"speakers": [{"name": "Ada"}, {"name": "Grace"}]
	}`)
	require.NoError(t, err)

	want := "Deep dive\n\n" +
		"Speakers: Ada, Grace\n" +
		"Room: TBA\n" +
		"Video: Not yet available\n" +
		"\n" +
		"More info: https://2024.javazone.no/program/" + sessionID + "\n"
	assert.Equal(t, want, s.CalendarDescription(2024))
}

func TestUserPicture(t *testing.T) {
	assert.Equal(t, unknownPictureURL, User{Email: "a@example.com"}.Picture())
	assert.Equal(t, "https://img/a.png", User{PictureURL: "https://img/a.png"}.Picture())
}
