// internal/store/table_test.go
package store

import (
	"sync"
	"testing"
)

func TestTable_WriteRead(t *testing.T) {
	tbl := NewTable(64, 8)

	if err := tbl.WriteHoldingRegisters(20, []uint16{0x4643, 0x5000}); err != nil {
		t.Fatalf("write err=%v", err)
	}
	regs, err := tbl.ReadHoldingRegisters(20, 2)
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	if regs[0] != 0x4643 || regs[1] != 0x5000 {
		t.Fatalf("got %#v", regs)
	}

	if err := tbl.WriteDiscreteInputs(0, []bool{true, false, true}); err != nil {
		t.Fatalf("write bits err=%v", err)
	}
	bits, err := tbl.ReadDiscreteInputs(0, 3)
	if err != nil {
		t.Fatalf("read bits err=%v", err)
	}
	if !bits[0] || bits[1] || !bits[2] {
		t.Fatalf("got %#v", bits)
	}
}

func TestTable_RangeChecks(t *testing.T) {
	tbl := NewTable(8, 4)

	if err := tbl.WriteHoldingRegisters(7, []uint16{1, 2}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := tbl.WriteDiscreteInputs(4, []bool{true}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := tbl.ReadHoldingRegisters(0, 9); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestTable_SnapshotIsolation(t *testing.T) {
	tbl := NewTable(4, 2)
	if err := tbl.WriteHoldingRegisters(0, []uint16{1, 2, 3, 4}); err != nil {
		t.Fatalf("write err=%v", err)
	}

	snap := tbl.HoldingRegisters()
	snap[0] = 999

	regs, err := tbl.ReadHoldingRegisters(0, 1)
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	if regs[0] != 1 {
		t.Fatalf("mutating a snapshot leaked into the table: got %d", regs[0])
	}
}

func TestTable_ConcurrentWriters(t *testing.T) {
	tbl := NewTable(128, 8)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base uint16) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if err := tbl.WriteHoldingRegisters(base, []uint16{base, base + 1}); err != nil {
					t.Errorf("write err=%v", err)
					return
				}
			}
		}(uint16(w * 16))
	}
	wg.Wait()

	for w := 0; w < 4; w++ {
		base := uint16(w * 16)
		regs, err := tbl.ReadHoldingRegisters(base, 2)
		if err != nil {
			t.Fatalf("read err=%v", err)
		}
		if regs[0] != base || regs[1] != base+1 {
			t.Fatalf("base %d: got %#v", base, regs)
		}
	}
}
