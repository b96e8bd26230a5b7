// Package scheduling_tools exposes the scheduling operations as callable tools.
//
// The same operations are offered to the chat dispatcher (findOpenSlots,
// checkAvailability, bookEvent) and to MCP clients, which additionally get
// bookFromText for free-text booking. Every invocation is recorded through
// common.Observe with the channel it came from.
package scheduling_tools
