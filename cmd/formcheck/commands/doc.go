// Package commands defines the formcheck CLI.
//
// Commands
//
//   - classify  Run the syntax rules against a single value
//   - watch     Feed values from stdin through the live validation engine
//
// # Implementation
//
// The root command loads configuration (FORMCHECK_* variables, optionally
// from --env-file) and builds the logger before any subcommand runs. watch
// wires a directory backend from the config, registers one field with the
// controller and prints every state change. When FORMCHECK_METRICS_ADDR is
// set it also serves /metrics and /healthz until the input ends.
//
// Lines read by watch are values, except for two directives:
//
//	/context <domain>   switch the field's domain
//	/recheck            re-run the availability check now
package commands
