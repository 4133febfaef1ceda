package state

import (
	"io"
	"sync"
)

// Writer syncs writes with a mutex shared between stdout and stderr.
type Writer struct {
	// RawOut is the underlying file, before any color handling.
	RawOut io.Writer
	Mutex  *sync.Mutex
	Writer io.Writer
	IsTTY  bool
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}
