// Package canvas defines the scene-space data model shared by the content
// pipeline: rectangles, viewports, snapshots of existing content, and the
// primitive visual elements that make up a synthesized content block.
//
// # Coordinates
//
// All coordinates are scene coordinates: the canvas's logical space,
// independent of the host's current zoom and scroll. X grows to the right,
// Y grows downward, and every [Geometry] is anchored at its top-left corner.
//
// # Elements
//
// [Element] is a closed variant over three primitives: [*Rectangle], [*Text]
// and [*Line]. Every primitive embeds [Base], so geometry is always present
// and placement code never needs to check for missing fields.
//
// Primitives that together represent one content block are collected in a
// [Group]; every member carries the group's id.
//
// # Host
//
// [Host] is the surface the pipeline consumes from a canvas application.
// [Board] is an in-memory implementation used by the CLI and HTTP server;
// its [Board.Apply] method serializes snapshot capture and insertion so that
// concurrent materializations against one board cannot race.
package canvas
