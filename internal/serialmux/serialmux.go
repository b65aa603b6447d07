// Package serialmux shares one instrument serial port between several
// consumers. The port is read as a raw byte stream and every chunk is fanned
// out to subscribers; NewStreamReader adapts a subscription to an io.Reader
// so a decode session can consume a live port like a file.
package serialmux

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// ErrClosed is returned by Monitor after Close.
var ErrClosed = errors.New("serialmux: closed")

const (
	readChunk        = 4096
	subscriberBuffer = 64
)

// SerialMux is a generic serial port multiplexer that allows multiple clients to
// subscribe to the byte stream from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan []byte
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
	dropped      int64
}

// NewSerialMux creates a SerialMux over an open port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan []byte),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe returns a channel receiving copies of every chunk read from the
// port. The channel is closed by Unsubscribe or Close.
func (s *SerialMux[T]) Subscribe() (string, chan []byte) {
	id := randomID()
	ch := make(chan []byte, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.isClosing() {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Dropped returns the number of chunks discarded because a subscriber was
// not keeping up.
func (s *SerialMux[T]) Dropped() int64 {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	return s.dropped
}

// SendCommand writes a raw command to the port.
func (s *SerialMux[T]) SendCommand(command []byte) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	n, err := s.port.Write(command)
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Nortek command sequences.
var (
	softBreak        = []byte("@@@@@@")
	breakConfirm     = []byte("K1W%!Q")
	startMeasurement = []byte("ST")
)

// Wake sends the soft break that puts an instrument in command mode.
func (s *SerialMux[T]) Wake(pause time.Duration) error {
	if err := s.SendCommand(softBreak); err != nil {
		return fmt.Errorf("failed to send break: %w", err)
	}
	time.Sleep(pause)
	if err := s.SendCommand(breakConfirm); err != nil {
		return fmt.Errorf("failed to confirm break: %w", err)
	}
	return nil
}

// StartMeasurement asks the instrument to start streaming records.
func (s *SerialMux[T]) StartMeasurement() error {
	if err := s.SendCommand(startMeasurement); err != nil {
		return fmt.Errorf("failed to start measurement: %w", err)
	}
	return nil
}

func (s *SerialMux[T]) isClosing() bool {
	s.closingMu.Lock()
	defer s.closingMu.Unlock()
	return s.closing
}

// Monitor reads the port until ctx is cancelled, the port reports EOF or
// Close is called, fanning every chunk out to subscribers. Subscribers that
// are not keeping up lose the chunk; the decoder resynchronises past the gap.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	type chunk struct {
		b   []byte
		err error
	}
	chunks := make(chan chunk)

	// Reads block, so they run apart from the loop that watches ctx.
	go func() {
		defer close(chunks)
		buf := make([]byte, readChunk)
		for {
			n, err := s.port.Read(buf)
			var c chunk
			if n > 0 {
				c.b = append([]byte(nil), buf[:n]...)
			}
			c.err = err
			if n == 0 && err == nil {
				// Read timeout with no data.
				if ctx.Err() != nil || s.isClosing() {
					return
				}
				continue
			}
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c, ok := <-chunks:
			if !ok {
				if s.isClosing() {
					return ErrClosed
				}
				return ctx.Err()
			}
			if s.isClosing() {
				return ErrClosed
			}
			if len(c.b) > 0 {
				s.publish(c.b)
			}
			if c.err == io.EOF {
				s.closeSubscribers()
				return nil
			}
			if c.err != nil {
				opsf("serial read failed: %v", c.err)
				s.closeSubscribers()
				return c.err
			}
		}
	}
}

func (s *SerialMux[T]) publish(b []byte) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	tracef("read %d bytes for %d subscribers", len(b), len(s.subscribers))
	for id, ch := range s.subscribers {
		select {
		case ch <- b:
		default:
			s.dropped++
			diagf("subscriber %s is behind, dropped %d bytes", id, len(b))
		}
	}
}

func (s *SerialMux[T]) closeSubscribers() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Close closes all subscribed channels and closes the serial port.
func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	if s.closing {
		s.closingMu.Unlock()
		return nil
	}
	s.closing = true
	s.closingMu.Unlock()

	s.closeSubscribers()
	return s.port.Close()
}

// NewStreamReader subscribes to the port and returns the stream as a reader.
// Reads return io.EOF once the subscription ends and ctx.Err() after ctx is
// cancelled. Closing the reader unsubscribes.
func (s *SerialMux[T]) NewStreamReader(ctx context.Context) io.ReadCloser {
	id, ch := s.Subscribe()
	pr, pw := io.Pipe()

	go func() {
		defer s.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			case b, ok := <-ch:
				if !ok {
					pw.Close()
					return
				}
				if _, err := pw.Write(b); err != nil {
					return
				}
			}
		}
	}()

	return &streamReader{PipeReader: pr, stop: func() { s.Unsubscribe(id) }}
}

type streamReader struct {
	*io.PipeReader
	once sync.Once
	stop func()
}

func (r *streamReader) Close() error {
	err := r.PipeReader.Close()
	r.once.Do(r.stop)
	return err
}
