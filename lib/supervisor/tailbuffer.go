// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import "sync"

// tailBuffer is an io.Writer that keeps the last limit bytes written.
type tailBuffer struct {
	mutex     sync.Mutex
	limit     int
	data      []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (buffer *tailBuffer) Write(p []byte) (int, error) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	buffer.data = append(buffer.data, p...)
	if excess := len(buffer.data) - buffer.limit; excess > 0 {
		buffer.data = append(buffer.data[:0], buffer.data[excess:]...)
		buffer.truncated = true
	}
	return len(p), nil
}

func (buffer *tailBuffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.truncated {
		return "..." + string(buffer.data)
	}
	return string(buffer.data)
}
