// Package mock implements a controllable swap converter for tests and demos.
package mock

import (
	"context"
	"sync"

	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
)

// Call records one conversion request the converter received.
type Call struct {
	Input  domain.Asset
	Amount int64
	Output domain.Asset
}

// Converter returns scripted results and records every call.
type Converter struct {
	mu     sync.Mutex
	output int64
	err    error
	calls  []Call
}

// New creates a mock converter that returns output for every conversion.
func New(output int64) *Converter {
	return &Converter{output: output}
}

// SetOutput changes the scripted output for subsequent conversions.
func (c *Converter) SetOutput(output int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = output
	c.err = nil
}

// Fail makes every subsequent conversion return err.
func (c *Converter) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Convert returns the scripted output or failure.
func (c *Converter) Convert(_ context.Context, input domain.Asset, amount int64, output domain.Asset) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Input: input, Amount: amount, Output: output})
	if c.err != nil {
		return 0, c.err
	}
	return c.output, nil
}

// Calls returns a copy of the recorded conversion requests.
func (c *Converter) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}
