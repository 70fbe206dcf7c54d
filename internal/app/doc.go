// Package app wires the program builder together for the demo CLI: it
// owns the logger, the operator registry, and the construction of the
// bundled example programs.
package app
