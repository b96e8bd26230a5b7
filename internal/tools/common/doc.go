// Package common provides helpers shared by the tool packages: account
// resolution and the metrics/tracing wrapper around every tool invocation.
package common
