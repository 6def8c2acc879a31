// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package curio

// kernelOptions holds configuration options for Kernel creation.
type kernelOptions struct {
	clock    Clock
	logger   Logger
	observer ActivationObserver
}

// --- Kernel Options ---

// KernelOption configures a Kernel at construction time, following the
// standard functional-options pattern.
type KernelOption func(*kernelOptions)

// WithClock overrides the kernel's time source, primarily for tests.
func WithClock(c Clock) KernelOption {
	return func(o *kernelOptions) { o.clock = c }
}

// WithLogger overrides the kernel's structured logger.
func WithLogger(l Logger) KernelOption {
	return func(o *kernelOptions) { o.logger = l }
}
