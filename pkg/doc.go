// Package pkg provides the core libraries for canvasflow.
//
// # Overview
//
// Canvasflow turns conversational replies into content on an infinite
// canvas. A reply carries action markers such as
//
//	[ACTION:CODE]```go
//	fmt.Println("hi")
//	```[/ACTION]
//
// and each marker becomes a group of rectangles, text and lines placed next
// to, but never on top of, what is already on the canvas.
//
// # Architecture
//
// The data flow for one turn:
//
//	User message
//	     ↓
//	[provider] package (send with history window, optional reply cache)
//	     ↓
//	[action] package (extract markers, clean the message)
//	     ↓
//	[synth] package (build one element group per action)
//	     ↓
//	[placement] package (find a free spot for each group)
//	     ↓
//	[canvas] groups handed to the host
//
// [pipeline] ties these together and is used by the CLI and the HTTP server.
//
// # Main Packages
//
// [action] - Action marker grammar. Unknown kinds and unterminated markers are
// dropped and reported, never fatal.
//
// [placement] - Placement strategies: viewport-center, grid, flow and
// proximity, plus the nearest-free-spot search.
//
// [synth] - Element synthesis for code blocks, terminals, notes, diagrams and
// chat bubbles. Diagram sizes come from [diagram] when the source is DOT.
//
// [canvas] - Element, group, geometry and snapshot types, and an in-memory
// [canvas.Board].
//
// [pipeline] - Materialization of a whole reply and the conversational
// [pipeline.Runner].
//
// ## Infrastructure
//
// [provider] - HTTP conversational backend and a singleflight reply cache.
//
// [cache] - Cache backends (null, file, redis) with msgpack values.
//
// [session] - Conversation sessions in memory, on disk or in a cache.
//
// [history] - Bounded conversation history.
//
// [config] - TOML/YAML configuration with environment overrides.
//
// [errors] - Structured error codes.
//
// [observability] - Hooks for parse, synthesis and provider events.
//
// [io] - Snapshot import and group export as JSON.
//
// # Testing
//
//	go test ./pkg/...
//	go test -run Example ./pkg/...
//
// [action]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/action
// [placement]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/placement
// [synth]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/synth
// [diagram]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/diagram
// [canvas]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/canvas
// [canvas.Board]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/canvas#Board
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/pipeline#Runner
// [provider]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/provider
// [cache]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/session
// [history]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/history
// [config]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/observability
// [io]: https://pkg.go.dev/github.com/matzehuels/canvasflow/pkg/io
package pkg
