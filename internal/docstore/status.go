package docstore

import "sync/atomic"

// statusBits packs a Handle's open flag and derivative-production state
// into a single atomic word: open, three has_*_lock bits, three has_* bits,
// and two *_outdated bits. Reads that only need to know whether a
// derivative has been published can do so with a single atomic load and no
// lock.
type statusBits = uint32

const (
	bitOpen statusBits = 1 << iota

	bitScopeLock
	bitScopeHas

	bitIRSourceLock
	bitIRSourceHas
	bitIRSourceOutdated

	bitIRDataLock
	bitIRDataHas
	bitIRDataOutdated
)

// derivativeBits bundles the lock/has/outdated bits for one derivative so
// the generic production protocol in handle.go can be parameterized once
// per artifact kind instead of duplicated three times.
type derivativeBits struct {
	lock     statusBits
	has      statusBits
	outdated statusBits // 0 if this derivative has no outdated concept
}

var (
	scopeBits    = derivativeBits{lock: bitScopeLock, has: bitScopeHas}
	irSourceBits = derivativeBits{lock: bitIRSourceLock, has: bitIRSourceHas, outdated: bitIRSourceOutdated}
	irDataBits   = derivativeBits{lock: bitIRDataLock, has: bitIRDataHas, outdated: bitIRDataOutdated}
)

// DerivativeStatus is the tri-state a caller observes for a derivative
// without forcing production: none, outdated, or done.
type DerivativeStatus int

const (
	StatusNone DerivativeStatus = iota
	StatusOutdated
	StatusDone
)

func statusOf(word statusBits, b derivativeBits) DerivativeStatus {
	if word&b.has == 0 {
		return StatusNone
	}
	if b.outdated != 0 && word&b.outdated != 0 {
		return StatusOutdated
	}
	return StatusDone
}

// testAndSetBit atomically ORs bit into word and reports whether it was
// already set — a CAS-based atomic bit-set-returning-prior-value
// primitive.
func testAndSetBit(word *atomic.Uint32, bit statusBits) (wasSet bool) {
	for {
		old := word.Load()
		if old&bit != 0 {
			return true
		}
		if word.CompareAndSwap(old, old|bit) {
			return false
		}
	}
}

// clearBits atomically clears the given bits and returns the new value.
func clearBits(word *atomic.Uint32, bits statusBits) statusBits {
	for {
		old := word.Load()
		neu := old &^ bits
		if word.CompareAndSwap(old, neu) {
			return neu
		}
	}
}

// setBitsClearing atomically clears clearSet and sets setSet in one step,
// used when publishing a derivative (clear its lock bit, set its has bit,
// clear its outdated bit).
func setBitsClearing(word *atomic.Uint32, clearSet, setSet statusBits) statusBits {
	for {
		old := word.Load()
		neu := (old &^ clearSet) | setSet
		if word.CompareAndSwap(old, neu) {
			return neu
		}
	}
}

// setOpen atomically sets or clears the open bit and returns the prior
// value.
func setOpen(word *atomic.Uint32, open bool) (prior bool) {
	for {
		old := word.Load()
		was := old&bitOpen != 0
		var neu statusBits
		if open {
			neu = old | bitOpen
		} else {
			neu = old &^ bitOpen
		}
		if word.CompareAndSwap(old, neu) {
			return was
		}
	}
}
