// Package viz renders a running flock in the terminal.
//
// The live view is a Bubble Tea program that steps a sim.Engine on every
// tick and draws the particles on a braille [Canvas], projected through a
// rotating [Camera]:
//
//   - [Model]: the live application
//   - [Canvas]: braille pixel canvas, 2x4 dots per cell
//   - [Camera]: orthographic projection of the sphere
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the initial flock
//	Up/Dn - Raise/lower the noise
//	< >   - Steps per frame
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
