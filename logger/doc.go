/*

Package logger provides logging functionality to a switchback server by defining the required behavior in [Logger]
and providing an implementation of it with [SwitchbackLogger].

# Overview

The Logger interface outputs messages at certain levels of importance.
LogLevel is the type to use to represent those levels.
An implementation of Logger may be initialized at a certain [LogLevel]
and only emit messages at or above that level of importance.
For example, [SwitchbackLogger] accepts a [LogLevel],
and if initialized with [LogLevelWarn],
only [*SwitchbackLogger.Warn], [*SwitchbackLogger.Error], and [*SwitchbackLogger.Fatal] produce messages.

# SwitchbackLogger

The [SwitchbackLogger] provides all the logging functionality needed for a switchback server.
It is the implementation of [Logger] returned by the [NewLogger] function.

Log messages emitted by [SwitchbackLogger] are composed of a few parts:
  - timestamp
  - log level
  - call site
  - message
  - log context

Here's an example:

	2022/04/28 15:55:21 [DEBUG] server/dispatcher.go:43 'such fun!' log_context: "{"data":{"route":"/trailheads/:id"}}"

The file, line number, and parent directory of where a [SwitchbackLogger] comprise the call site.
The message is the actual string passed into the [SwitchbackLogger] method, in this example, [*SwitchbackLogger.Debug].
Lastly, the log context is a JSON-encoded [*LogContext].
The last component allows for including additional data inessential to the message proper,
but provides a fuller picture of the application state at the time of logging.

# SkipLogger

Sometimes, especially with internal packages, the file and line number in a log needs to be configurable.
[SkipLogger] provides additional configuration functionality by setting the number of frames to skip
back in order to reach the desired caller.
*/
package logger
