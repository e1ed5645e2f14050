package capture

import (
	"sync"

	"github.com/trezcool/tulia/core/emotion"
)

// DefaultMaxAudioChunks bounds the queued audio when nobody drains it.
const DefaultMaxAudioChunks = 32

// Buffer is a MediaCapture fed by the child's browser: the page uploads its latest camera frame and
// microphone chunks, the sampler takes the frame & drains the audio. A frame is handed out once.
type Buffer struct {
	mu        sync.Mutex
	frame     []byte
	audio     [][]byte
	maxChunks int
	closed    bool
}

var _ emotion.MediaCapture = (*Buffer)(nil)

func NewBuffer(maxChunks int) *Buffer {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxAudioChunks
	}
	return &Buffer{maxChunks: maxChunks}
}

// PutFrame replaces the latest frame. Ignored once closed.
func (b *Buffer) PutFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.frame = frame
	}
}

// PutAudio queues an audio chunk, dropping the oldest past maxChunks. Ignored once closed.
func (b *Buffer) PutAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.audio = append(b.audio, chunk)
	if over := len(b.audio) - b.maxChunks; over > 0 {
		b.audio = append(b.audio[:0], b.audio[over:]...)
	}
}

// Frame takes the frame uploaded since the last call.
func (b *Buffer) Frame() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.frame == nil {
		return nil, emotion.ErrFrameNotReady
	}
	frame := b.frame
	b.frame = nil
	return frame, nil
}

func (b *Buffer) DrainAudio() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	chunks := b.audio
	b.audio = nil
	return chunks
}

// Close releases the media. Further frames are refused.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.frame = nil
	b.audio = nil
	return nil
}
