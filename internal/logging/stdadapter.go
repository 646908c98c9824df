// MIT License
//
// Copyright (c) 2023 Spiral Scout
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package logging adapts the standard library's *log.Logger onto a
// *zap.Logger, so any stray use of the global "log" package (including
// from third-party code that only knows about *log.Logger) funnels
// through the same structured sink as everything else.
package logging

import "go.uber.org/zap"

// StdAdapter implements io.Writer and can be passed to log.New or
// log.SetOutput to redirect standard-library logging into a zap
// logger.
type StdAdapter struct {
	log *zap.Logger
}

// NewStdAdapter constructs a StdAdapter.
func NewStdAdapter(log *zap.Logger) *StdAdapter {
	return &StdAdapter{log: log}
}

// Write implements io.Writer.
func (s *StdAdapter) Write(p []byte) (int, error) {
	s.log.Error("stdlib log", zap.String("message", string(p)))
	return len(p), nil
}
