package scheduling_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/booking"
	"github.com/teemow/calmate/internal/timeparse"
)

// Tool names.
const (
	ToolFindOpenSlots     = "findOpenSlots"
	ToolCheckAvailability = "checkAvailability"
	ToolBookEvent         = "bookEvent"
	ToolBookFromText      = "bookFromText"
)

const (
	slotDayLayout = "Mon, Jan 2 at 3:04 PM"
	slotEndLayout = "3:04 PM MST"
)

// operation is one scheduling operation callable with JSON arguments.
type operation struct {
	name        string
	description string

	// parameters is the declaration offered to the chat model. Operations
	// without one are MCP-only.
	parameters *jsonschema.Definition
	mcpOptions []mcp.ToolOption

	// run decodes args and calls the service on behalf of account.
	run func(ctx context.Context, svc *booking.Service, account string, args []byte) (interface{}, error)

	// text renders a successful result for MCP clients.
	text func(result interface{}) string
}

const userEmailDescription = "Email of a connected Google account. Omit to use the service calendar."

var operations = []operation{
	{
		name:        ToolFindOpenSlots,
		description: "Find available time slots for a given date and duration.",
		parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"date": {
					Type:        jsonschema.String,
					Description: "Day to search, e.g. 'tomorrow' or '2025-03-11'",
				},
				"duration_minutes": {
					Type:        jsonschema.Integer,
					Description: "Length of each slot in minutes",
				},
			},
			Required: []string{"date", "duration_minutes"},
		},
		mcpOptions: []mcp.ToolOption{
			mcp.WithString("user_email", mcp.Description(userEmailDescription)),
			mcp.WithString("date",
				mcp.Required(),
				mcp.Description("Day to search, e.g. 'tomorrow' or '2025-03-11'"),
			),
			mcp.WithNumber("duration_minutes",
				mcp.Required(),
				mcp.Description("Length of each slot in minutes"),
			),
		},
		run: func(ctx context.Context, svc *booking.Service, account string, args []byte) (interface{}, error) {
			var req booking.FindOpenSlotsRequest
			if err := decode(ToolFindOpenSlots, args, &req); err != nil {
				return nil, err
			}
			req.UserEmail = account
			return svc.FindOpenSlots(ctx, req)
		},
		text: func(result interface{}) string {
			slots := result.(*booking.OpenSlotsResponse).OpenSlots
			if len(slots) == 0 {
				return "No open slots found for the requested day"
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "Found %d open slot(s):\n\n", len(slots))
			for i, slot := range slots {
				fmt.Fprintf(&sb, "%d. %s to %s\n", i+1, slot.Start.Format(slotDayLayout), slot.End.Format(slotEndLayout))
			}
			return sb.String()
		},
	},
	{
		name:        ToolCheckAvailability,
		description: "Check if a specific time range is available.",
		parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"start_time": {
					Type:        jsonschema.String,
					Description: "Start of the range, e.g. 'tomorrow at 3 PM'",
				},
				"end_time": {
					Type:        jsonschema.String,
					Description: "End of the range, e.g. 'tomorrow at 4 PM'",
				},
			},
			Required: []string{"start_time", "end_time"},
		},
		mcpOptions: []mcp.ToolOption{
			mcp.WithString("user_email", mcp.Description(userEmailDescription)),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Start of the range, e.g. 'tomorrow at 3 PM'"),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("End of the range, e.g. 'tomorrow at 4 PM'"),
			),
		},
		run: func(ctx context.Context, svc *booking.Service, account string, args []byte) (interface{}, error) {
			var req booking.CheckAvailabilityRequest
			if err := decode(ToolCheckAvailability, args, &req); err != nil {
				return nil, err
			}
			req.UserEmail = account
			return svc.CheckAvailability(ctx, req)
		},
		text: func(result interface{}) string {
			if result.(*booking.AvailabilityResponse).Available {
				return "The requested time is free"
			}
			return "The requested time is already booked"
		},
	},
	{
		name:        ToolBookEvent,
		description: "Book an event in the calendar.",
		parameters: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"summary": {
					Type:        jsonschema.String,
					Description: "Title of the event",
				},
				"start_time": {
					Type:        jsonschema.String,
					Description: "Event start, e.g. 'tomorrow at 3 PM'",
				},
				"end_time": {
					Type:        jsonschema.String,
					Description: "Event end, e.g. 'tomorrow at 4 PM'",
				},
				"attendees": {
					Type:        jsonschema.Array,
					Description: "Email addresses to invite. Invitations include a Google Meet link.",
					Items:       &jsonschema.Definition{Type: jsonschema.String},
				},
			},
			Required: []string{"summary", "start_time", "end_time"},
		},
		mcpOptions: []mcp.ToolOption{
			mcp.WithString("user_email", mcp.Description(userEmailDescription)),
			mcp.WithString("summary",
				mcp.Required(),
				mcp.Description("Title of the event"),
			),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Event start, e.g. 'tomorrow at 3 PM'"),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("Event end, e.g. 'tomorrow at 4 PM'"),
			),
			mcp.WithArray("attendees",
				mcp.Description("Email addresses to invite. Invitations include a Google Meet link."),
				mcp.WithStringItems(),
			),
		},
		run: func(ctx context.Context, svc *booking.Service, account string, args []byte) (interface{}, error) {
			var req booking.BookEventRequest
			if err := decode(ToolBookEvent, args, &req); err != nil {
				return nil, err
			}
			req.UserEmail = account
			return svc.BookEvent(ctx, req)
		},
		text: func(result interface{}) string {
			resp := result.(*booking.BookEventResponse)
			out := fmt.Sprintf("Event created: %s", resp.CalendarLink)
			if resp.MeetLink != "" {
				out += fmt.Sprintf("\nGoogle Meet: %s", resp.MeetLink)
			}
			return out
		},
	},
	{
		name:        ToolBookFromText,
		description: "Book a meeting described in plain English, e.g. 'Schedule a call tomorrow at 3 PM'.",
		mcpOptions: []mcp.ToolOption{
			mcp.WithString("user_email", mcp.Description(userEmailDescription)),
			mcp.WithString("user_input",
				mcp.Required(),
				mcp.Description("Sentence containing the date and time of the meeting"),
			),
		},
		run: func(ctx context.Context, svc *booking.Service, account string, args []byte) (interface{}, error) {
			var req booking.BookRequest
			if err := decode(ToolBookFromText, args, &req); err != nil {
				return nil, err
			}
			req.UserEmail = account
			return svc.Book(ctx, req)
		},
		text: func(result interface{}) string {
			res := result.(*booking.BookingResult)
			return fmt.Sprintf("Booked %s to %s: %s",
				res.Slot.Start.Format(timeparse.Layout),
				res.Slot.End.Format(slotEndLayout),
				res.CalendarLink)
		},
	},
}

// decode unmarshals tool arguments. Malformed arguments are the caller's
// fault and reported as InvalidInput.
func decode(tool string, args []byte, v interface{}) error {
	if len(strings.TrimSpace(string(args))) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperror.InvalidInput("malformed arguments for %s: %v", tool, err)
	}
	return nil
}
