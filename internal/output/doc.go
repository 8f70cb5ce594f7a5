// Package output renders analysis results.
//
// Results can be streamed as they are delivered by the executor, or collected
// and written at the end of a run in one of several formats.
//
// # Streaming
//
// A Console prints one line per visible result as soon as its batch is
// delivered, followed by a summary line:
//
//	console := output.NewConsole(os.Stdout, output.WithRoot(root))
//	summary, err := pool.ExecuteSection(ctx, section, catalog, console.Sink())
//	console.Summary()
//
// # Formatters
//
// Structured formats need the complete list, so a Collector gathers results
// and a Formatter writes them afterwards:
//
//	var collector output.Collector
//	pool.ExecuteSection(ctx, section, catalog, collector.Sink())
//	output.NewFormatter(output.FormatJSON).FormatResults(os.Stdout, collector.Results())
//
// Supported formats are table, json, yaml and toml. Hidden results are never
// written by any formatter.
//
// # Color Support
//
// Colors are enabled for TTY outputs and disabled for pipes, redirects, or
// with WithNoColor(true). Major findings are red, normal findings yellow,
// and paths cyan.
package output
