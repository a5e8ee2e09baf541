/*
Package log wraps zerolog with the structured-logging conventions osmaug
uses across its packages: a global Logger initialized once by the CLI
via Init, human-readable console output by default with JSON output when
Config.JSONOutput is set, and WithRun/WithEntity/WithComponent helpers for
scoping a child logger to the current change application, entity, or
subsystem.
*/
package log
