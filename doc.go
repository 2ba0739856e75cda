// Package pickplace simulates a pick-and-place cell driven by a remote
// robot-control service.
//
// A robot carries an object from table A to table B. Motions are computed by
// the service; this module polls it, mirrors the reported pose into a local
// store and redraws the room on every change.
//
// # Installation
//
//	go install github.com/gwillem/pickplace/cmd/pickplace@latest
//
// # Usage
//
// Start the simulated robot-control service:
//
//	pickplace serve
//
// Edit the cell layout:
//
//	pickplace setup
//
// Then start the interactive view, or run a choreography headless:
//
//	pickplace run
//	pickplace exec pick
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pickplace: CLI with setup, run, exec and serve commands
//   - pkg/robot: Poses, session store, workspace bounds and configuration
//   - pkg/motion: Service client, polling driver and choreography sequencer
//   - pkg/scene: Scene rendering and terminal rasterization
//   - pkg/simulator: In-process robot-control service
package pickplace
