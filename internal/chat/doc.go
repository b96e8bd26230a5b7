// Package chat implements the conversational front end of CalMate.
//
// A Dispatcher sends the user's transcript, prefixed with the CalMate persona,
// to an OpenAI-compatible chat completion endpoint together with the
// scheduling tool declarations. When the model requests tool calls, the
// Dispatcher executes them in order, feeds the results back and asks the model
// for a final answer without tools:
//
//	awaitingToolResult -> (tool calls executed) -> awaitingFinalText -> reply
//
// Tool failures caused by the request (invalid input, an occupied slot) are
// returned to the model so it can explain them to the user. Upstream failures
// abort the request.
package chat
