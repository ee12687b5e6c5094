package pool

import loggergoModel "github.com/Alonza0314/logger-go/v2/model"

const MaxBufferSize = 12 * 1024

// ByteBuffer is the pooled payload type carried between PHY, HARQ and the multiplexer.
type ByteBuffer struct {
	buf [MaxBufferSize]byte
	N   int
}

func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{}
}

func (b *ByteBuffer) Bytes() []byte {
	return b.buf[:b.N]
}

// Resize sets the length and returns the writable slice. Sizes above MaxBufferSize are clamped.
func (b *ByteBuffer) Resize(n int) []byte {
	if n > MaxBufferSize {
		n = MaxBufferSize
	}
	if n < 0 {
		n = 0
	}
	b.N = n
	return b.buf[:n]
}

func (b *ByteBuffer) Set(data []byte) int {
	n := copy(b.buf[:], data)
	b.N = n
	return n
}

func (b *ByteBuffer) Reset() {
	b.N = 0
}

type BufferPool = Pool[ByteBuffer]

func NewBufferPool(capacity int, log loggergoModel.LoggerInterface) (*BufferPool, error) {
	return NewPool(capacity, NewByteBuffer, log)
}
