// Package calendartest provides an in-process fake of the Google Calendar
// REST API for tests. It implements events.list and events.insert with
// read-after-write consistency.
package calendartest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Insert is one recorded events.insert call.
type Insert struct {
	CalendarID string
	Query      url.Values
	Event      *calendar.Event
	// Raw is the request body as sent on the wire
	Raw map[string]interface{}
}

// Server is a fake Calendar API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	events   map[string][]*calendar.Event
	inserts  []Insert
	lists    []url.Values
	failList int
	failIns  int
	nextID   int
}

// NewServer starts a fake Calendar API. Close it when done.
func NewServer() *Server {
	s := &Server{events: map[string][]*calendar.Event{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Options returns client options pointing the Calendar service at the fake.
func (s *Server) Options() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(s.URL + "/"),
		option.WithHTTPClient(s.Client()),
	}
}

// EndpointOption returns only the endpoint option, for callers that bring
// their own authorised HTTP client.
func (s *Server) EndpointOption() option.ClientOption {
	return option.WithEndpoint(s.URL + "/")
}

// AddEvent seeds a timed event on calendarID.
func (s *Server) AddEvent(calendarID, summary string, start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.events[calendarID] = append(s.events[calendarID], &calendar.Event{
		Id:      fmt.Sprintf("seed-%d", s.nextID),
		Summary: summary,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	})
}

// FailList makes the next n events.list calls return HTTP status code.
func (s *Server) FailList(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = n
}

// FailInsert makes the next n events.insert calls fail.
func (s *Server) FailInsert(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failIns = n
}

// Inserts returns the recorded events.insert calls.
func (s *Server) Inserts() []Insert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Insert(nil), s.inserts...)
}

// Lists returns the query parameters of every events.list call.
func (s *Server) Lists() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.lists...)
}

// calendarID extracts the id from /calendars/{id}/events.
func calendarID(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "calendars" && parts[i+2] == "events" {
			id, err := url.PathUnescape(parts[i+1])
			return id, err == nil
		}
	}
	return "", false
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	id, ok := calendarID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found: "+r.URL.Path)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.list(w, r, id)
	case http.MethodPost:
		s.insert(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	s.lists = append(s.lists, q)
	if s.failList > 0 {
		s.failList--
		writeError(w, http.StatusInternalServerError, "backend error")
		return
	}

	timeMin, errMin := time.Parse(time.RFC3339, q.Get("timeMin"))
	timeMax, errMax := time.Parse(time.RFC3339, q.Get("timeMax"))
	if errMin != nil || errMax != nil {
		writeError(w, http.StatusBadRequest, "invalid timeMin/timeMax")
		return
	}

	items := []*calendar.Event{}
	for _, ev := range s.events[id] {
		start, _ := time.Parse(time.RFC3339, ev.Start.DateTime)
		end, _ := time.Parse(time.RFC3339, ev.End.DateTime)
		if start.Before(timeMax) && end.After(timeMin) {
			items = append(items, ev)
		}
	}

	writeJSON(w, http.StatusOK, &calendar.Events{Kind: "calendar#events", Items: items})
}

func (s *Server) insert(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var ev calendar.Event
	var raw map[string]interface{}
	if json.Unmarshal(body, &ev) != nil || json.Unmarshal(body, &raw) != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts = append(s.inserts, Insert{CalendarID: id, Query: r.URL.Query(), Event: &ev, Raw: raw})
	if s.failIns > 0 {
		s.failIns--
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	s.nextID++
	ev.Id = fmt.Sprintf("evt-%d", s.nextID)
	ev.Status = "confirmed"
	ev.HtmlLink = fmt.Sprintf("https://calendar.example.com/event?eid=%s", ev.Id)
	if ev.ConferenceData != nil && ev.ConferenceData.CreateRequest != nil && r.URL.Query().Get("conferenceDataVersion") == "1" {
		meet := fmt.Sprintf("https://meet.example.com/%s", ev.Id)
		ev.HangoutLink = meet
		ev.ConferenceData.EntryPoints = []*calendar.EntryPoint{{EntryPointType: "video", Uri: meet}}
	}
	s.events[id] = append(s.events[id], &ev)

	writeJSON(w, http.StatusOK, &ev)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{"code": status, "message": message},
	})
}
