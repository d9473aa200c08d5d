// Package webui serves the read-only HTTP/JSON dashboard surface: the last
// ControlMessage published by the controller, the last ActuatorStatus
// published by the actuator, and a handful of small derived endpoints
// (watering summary, valve status, flow, work log, metrics).
package webui

import (
	"sync"

	"github.com/kimata/unit-cooler/internal/model"
)

// Cache holds the last-seen ControlMessage and ActuatorStatus behind a
// single mutex, modeled on this tree's load/mutate/copy-out idiom: writers
// replace the whole value, readers take a shallow copy and never hold the
// lock while encoding a response.
type Cache struct {
	mu     sync.RWMutex
	msg    *model.ControlMessage
	status *model.ActuatorStatus
}

// NewCache returns an empty Cache; /api/stat reports zero values until the
// first Observe/SetControlMessage call lands.
func NewCache() *Cache {
	return &Cache{}
}

// SetControlMessage records the controller's latest published message.
func (c *Cache) SetControlMessage(msg model.ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msg = &msg
}

// Observe implements supervisor.StatusObserver, so the actuator's control
// worker can feed this cache directly when WebUI and actuator share a
// process, and so a bridging goroutine can feed it when they don't.
func (c *Cache) Observe(status model.ActuatorStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = &status
}

// ControlMessage returns a shallow copy of the last-seen message and whether
// one has arrived yet.
func (c *Cache) ControlMessage() (model.ControlMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.msg == nil {
		return model.ControlMessage{}, false
	}
	return *c.msg, true
}

// ActuatorStatus returns a shallow copy of the last-seen status and whether
// one has arrived yet.
func (c *Cache) ActuatorStatus() (model.ActuatorStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return model.ActuatorStatus{}, false
	}
	return *c.status, true
}
