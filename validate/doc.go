// Package validate runs a workspace's build and test pipeline through
// an external toolchain (make, qemu) and parses the resulting output
// into structured diagnostics, then compares an isolated test pass
// against an integration pass to catch compositions that fail only
// when combined.
package validate
