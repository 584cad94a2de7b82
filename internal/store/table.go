// internal/store/table.go
package store

import (
	"fmt"
	"sync"
)

// Table is the slave data store shared between the acquisition loops and the
// Modbus TCP server: one holding-register bank and one discrete-input bank.
// Range writes are atomic with respect to readers (no sub-range visibility),
// but two writes from different loops may be observed in either order.
// Contents are volatile and reinitialize to zero on restart.
type Table struct {
	mu       sync.RWMutex
	holding  []uint16
	discrete []bool
}

func NewTable(holdingSize, discreteSize int) *Table {
	return &Table{
		holding:  make([]uint16, holdingSize),
		discrete: make([]bool, discreteSize),
	}
}

// WriteHoldingRegisters stores regs at addr. The whole range must fit.
func (t *Table) WriteHoldingRegisters(addr uint16, regs []uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(addr)+len(regs) > len(t.holding) {
		return fmt.Errorf("store: holding write %d+%d exceeds bank size %d", addr, len(regs), len(t.holding))
	}
	copy(t.holding[addr:], regs)
	return nil
}

// WriteDiscreteInputs stores bits at addr. The whole range must fit.
func (t *Table) WriteDiscreteInputs(addr uint16, bits []bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(addr)+len(bits) > len(t.discrete) {
		return fmt.Errorf("store: discrete write %d+%d exceeds bank size %d", addr, len(bits), len(t.discrete))
	}
	copy(t.discrete[addr:], bits)
	return nil
}

// ReadHoldingRegisters returns a copy of qty registers starting at addr.
func (t *Table) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(addr)+int(qty) > len(t.holding) {
		return nil, fmt.Errorf("store: holding read %d+%d exceeds bank size %d", addr, qty, len(t.holding))
	}
	out := make([]uint16, qty)
	copy(out, t.holding[addr:])
	return out, nil
}

// ReadDiscreteInputs returns a copy of qty bits starting at addr.
func (t *Table) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(addr)+int(qty) > len(t.discrete) {
		return nil, fmt.Errorf("store: discrete read %d+%d exceeds bank size %d", addr, qty, len(t.discrete))
	}
	out := make([]bool, qty)
	copy(out, t.discrete[addr:])
	return out, nil
}

// HoldingRegisters returns a snapshot of the whole holding bank.
func (t *Table) HoldingRegisters() []uint16 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]uint16, len(t.holding))
	copy(out, t.holding)
	return out
}

// DiscreteInputs returns a snapshot of the whole discrete-input bank.
func (t *Table) DiscreteInputs() []bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]bool, len(t.discrete))
	copy(out, t.discrete)
	return out
}
