// Package io provides JSON import and export for canvas content.
//
// # Overview
//
// Export writes finished element groups so a host, or a later invocation of
// the CLI, can consume them. Import reads the canvas snapshot placement is
// solved against. The two formats line up: the groups written by [WriteGroups]
// can be read back by [ReadSnapshot] as existing content.
//
// # Snapshot Format
//
//	{
//	  "viewport": {"scroll_x": 0, "scroll_y": 0, "zoom": 1, "width": 1280, "height": 800},
//	  "existing": [
//	    {"x": 40, "y": 40, "width": 300, "height": 120}
//	  ],
//	  "groups": [
//	    {"group_id": "...", "kind": "NOTE", "members": [{"type": "rectangle", "geometry": {...}}]}
//	  ]
//	}
//
// All fields are optional. The geometry of every group member is appended to
// "existing". A missing or zero zoom is treated as 1 by the placement code.
//
// # Groups Format
//
//	{
//	  "groups": [
//	    {
//	      "group_id": "5f0c...",
//	      "kind": "CODE",
//	      "members": [
//	        {"type": "rectangle", "id": "...", "group_id": "5f0c...", "geometry": {...}, "style": {...}},
//	        {"type": "text", "id": "...", "group_id": "5f0c...", "geometry": {...}, "text": "..."}
//	      ]
//	    }
//	  ]
//	}
//
// Each member carries a "type" discriminator: rectangle, text or line.
package io
