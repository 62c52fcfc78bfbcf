// Copyright 2026 Luke Dempsey.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbd

// lenOffset is the position of the LEN byte relative to the start marker
const lenOffset = 3

// Reassembler recovers discrete candidate frames from an unbounded byte
// stream with no prior knowledge of frame boundaries. On seeing the start
// marker it reads the declared LEN to compute the exact frame length and
// slices exactly that many bytes. Whether a slice is a complete valid frame
// is decided by Decode, not here.
//
// The same splitting logic serves the live read loop (accumulating chunks
// until one full frame appears) and offline analysis of pasted buffers.
// Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf []byte
}

// Feed appends a chunk of received bytes and returns every complete
// candidate frame now available, in arrival order. Leading bytes before a
// start marker are discarded as line noise.
func (r *Reassembler) Feed(chunk []byte) [][]byte {
	r.buf = append(r.buf, chunk...)

	var frames [][]byte
	for {
		r.discardNoise()
		need, ok := r.frameLen()
		if !ok || len(r.buf) < need {
			return frames
		}
		frame := make([]byte, need)
		copy(frame, r.buf[:need])
		frames = append(frames, frame)
		r.buf = r.buf[need:]
	}
}

// Pending returns how many buffered bytes await completion
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Flush returns the buffered remainder as a best-effort terminal fragment
// for diagnostics and resets the reassembler. The fragment, if any, will
// fail Decode with a structural error describing what is missing.
func (r *Reassembler) Flush() []byte {
	r.discardNoise()
	rest := r.buf
	r.buf = nil
	return rest
}

// Reset drops all buffered bytes
func (r *Reassembler) Reset() {
	r.buf = nil
}

// discardNoise drops bytes preceding the first start marker
func (r *Reassembler) discardNoise() {
	i := 0
	for i < len(r.buf) && r.buf[i] != FrameStart {
		i++
	}
	r.buf = r.buf[i:]
}

// frameLen returns the total length of the frame at the head of the buffer,
// or ok == false when the LEN byte has not arrived yet.
func (r *Reassembler) frameLen() (int, bool) {
	if len(r.buf) <= lenOffset {
		return 0, false
	}
	return frameOverhead + int(r.buf[lenOffset]), true
}

// SplitFrames splits an entire captured buffer into candidate frames up
// front, for offline multi-frame analysis. The second return value is the
// trailing partial frame, if any; interleaved noise between frames is
// dropped.
func SplitFrames(data []byte) ([][]byte, []byte) {
	var r Reassembler
	return r.Feed(data), r.Flush()
}
