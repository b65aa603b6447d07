package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestSendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	if err := mux.StartMeasurement(); err != nil {
		t.Fatalf("StartMeasurement() error = %v", err)
	}
	if err := mux.Wake(0); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	if got := string(port.GetWrittenData()); got != "ST@@@@@@K1W%!Q" {
		t.Errorf("written = %q", got)
	}

	port.WriteError = errors.New("boom")
	if err := mux.StartMeasurement(); err == nil {
		t.Error("expected write error")
	}
}

func TestMonitor_FansOutUntilEOF(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()
	port.AddReadData([]byte{0xA5, 0x01, 0x02})

	if err := mux.Monitor(context.Background()); err != nil {
		t.Fatalf("Monitor() error = %v", err)
	}

	for name, ch := range map[string]chan []byte{"a": a, "b": b} {
		var got []byte
		for chunk := range ch {
			got = append(got, chunk...)
		}
		if !bytes.Equal(got, []byte{0xA5, 0x01, 0x02}) {
			t.Errorf("subscriber %s got %x", name, got)
		}
	}
}

func TestMonitor_ReadError(t *testing.T) {
	port := NewTestableSerialPort()
	port.ReadError = errors.New("device unplugged")
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	err := mux.Monitor(context.Background())
	if err == nil || err.Error() != "device unplugged" {
		t.Fatalf("Monitor() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after a read error")
	}
}

func TestMonitor_Cancel(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestClose_ClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if !port.Closed {
		t.Error("port should be closed")
	}
	// Subscribing after close returns a closed channel.
	_, late := mux.Subscribe()
	if _, ok := <-late; ok {
		t.Error("late subscription should be closed")
	}
	if err := mux.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNewStreamReader(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	r := mux.NewStreamReader(context.Background())
	defer r.Close()
	port.AddReadData([]byte("first"))

	go mux.Monitor(context.Background())

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "first" {
		t.Errorf("stream = %q", got)
	}
}

func TestNewStreamReader_Cancel(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := mux.NewStreamReader(ctx)
	defer r.Close()
	cancel()

	_, err := io.ReadAll(r)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadAll() error = %v, want context.Canceled", err)
	}
}

func TestPublish_DropsForSlowSubscriber(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	mux.Subscribe()
	for i := 0; i < subscriberBuffer+3; i++ {
		mux.publish([]byte{byte(i)})
	}
	if got := mux.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}
