package risk

import (
	"sync"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
)

// KillSwitch is a process-wide trading halt. Once tripped it stays
// active until an explicit Reset; every order gate checks it before the
// risk engine runs.
type KillSwitch struct {
	// ManualOnly disables the automatic trip on EJECT decisions; Trip
	// stays available to operators. Set before first use.
	ManualOnly bool

	mu     sync.Mutex
	active bool
	reason string
}

// Active reports whether trading is halted.
func (k *KillSwitch) Active() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active
}

// Reason returns the reason recorded at trip time, empty when inactive.
func (k *KillSwitch) Reason() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.reason
}

// Trip halts trading. The first reason wins; repeat trips are no-ops.
func (k *KillSwitch) Trip(reason string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return
	}
	k.active = true
	k.reason = reason
	logs.Errorf("risk: kill switch tripped: %s", reason)
}

// Reset re-enables trading. Explicit operator action.
func (k *KillSwitch) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		logs.Warnf("risk: kill switch reset (was: %s)", k.reason)
	}
	k.active = false
	k.reason = ""
}

// Observe trips the switch when a decision is an EJECT, so that the
// halt survives engine resets and is visible to every entry path. A
// ManualOnly switch ignores decisions entirely.
func (k *KillSwitch) Observe(d model.RiskDecision) {
	if k.ManualOnly {
		return
	}
	if d.Action == enum.RiskEject {
		k.Trip(d.Reason)
	}
}
