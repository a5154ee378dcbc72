// Package climate holds the primitives shared by the emulator packages.
//
// The emulator couples two reduced-order reservoirs models:
//
//   - a three-box carbon cycle (atmosphere, upper ocean, lower ocean)
//   - a two-box temperature response (atmosphere, deep ocean)
//
// both advanced with explicit forward-Euler steps of size dt. This package
// defines the [Series] container both engines append to and the error
// taxonomy every layer reports with:
//
//   - [ConfigError]: unknown model, missing or invalid parameter
//   - [DomainError]: inputs that make the recurrence undefined
//
// # Thread Safety
//
// Nothing in the emulator core is safe for concurrent use. Parallel
// ensemble runs construct one runner per goroutine.
package climate
