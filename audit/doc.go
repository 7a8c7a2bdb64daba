// Package audit records authorization-relevant decisions as immutable,
// line-delimited JSON entries.
//
// Every credential resolution and every event read emits exactly one Entry
// through a Recorder. Recording is synchronous: a Recorder returns only after
// the complete line has been handed to its sink, so a crash cannot drop an
// entry that the caller already acted on.
package audit
