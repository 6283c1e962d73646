package mux

import (
	"errors"
	"sync"
	"testing"
)

type recordingMux struct {
	dummyMux
	log       *[]string
	selectErr error
}

func (r *recordingMux) SelectSinglePort(num int) error {
	*r.log = append(*r.log, "select")
	return r.selectErr
}

type recordingDev struct {
	log *[]string
}

func (r *recordingDev) ReadReg(reg byte, buf []byte) error {
	*r.log = append(*r.log, "read")
	return nil
}

func (r *recordingDev) WriteReg(reg byte, buf []byte) error {
	*r.log = append(*r.log, "write")
	return nil
}

func (r *recordingDev) Close() error {
	*r.log = append(*r.log, "close")
	return nil
}

func TestPortSelectorSelectsBeforeEachTransaction(t *testing.T) {
	var log []string
	s := NewPortSelector(&sync.Mutex{}, &recordingMux{log: &log}, 7, &recordingDev{log: &log})

	_ = s.WriteReg(4, []byte{20})
	_ = s.ReadReg(12, make([]byte, 48))
	_ = s.Close()

	expected := []string{"select", "write", "select", "read", "close"}
	if len(log) != len(expected) {
		t.Fatalf("got %v, expected %v", log, expected)
	}
	for i := range expected {
		if log[i] != expected[i] {
			t.Fatalf("got %v, expected %v", log, expected)
		}
	}
}

func TestPortSelectorSkipsTransactionWhenSelectFails(t *testing.T) {
	var log []string
	muxErr := errors.New("nack")
	s := NewPortSelector(&sync.Mutex{}, &recordingMux{log: &log, selectErr: muxErr}, 3, &recordingDev{log: &log})

	err := s.ReadReg(0, make([]byte, 1))
	if !errors.Is(err, muxErr) {
		t.Fatalf("expected mux error, got %v", err)
	}
	if len(log) != 1 {
		t.Errorf("device should not be touched after a failed select: %v", log)
	}
}

func TestPortDoSerialisesTransactions(t *testing.T) {
	var log []string
	lock := &sync.Mutex{}
	mx := &recordingMux{log: &log}
	a := NewPort(lock, mx, 1)
	b := NewPort(lock, mx, 2)

	var wg sync.WaitGroup
	for _, p := range []*Port{a, b, a, b} {
		wg.Add(1)
		go func(p *Port) {
			defer wg.Done()
			_ = p.Do(func() error {
				log = append(log, "txn")
				return nil
			})
		}(p)
	}
	wg.Wait()

	if len(log) != 8 {
		t.Fatalf("got %v, expected 4 select/txn pairs", log)
	}
	for i := 0; i < len(log); i += 2 {
		if log[i] != "select" || log[i+1] != "txn" {
			t.Fatalf("select and transaction interleaved: %v", log)
		}
	}
}

func TestPortDoReturnsTransactionError(t *testing.T) {
	var log []string
	p := NewPort(&sync.Mutex{}, &recordingMux{log: &log}, 0)
	txnErr := errors.New("remote I/O error")
	if err := p.Do(func() error { return txnErr }); err != txnErr {
		t.Errorf("expected the transaction's error, got %v", err)
	}
}
