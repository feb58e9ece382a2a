package motor

import (
	"math/rand"
	"sync"
	"time"
)

const LOAD_DELTA = 0.05
const LOAD_INTERVAL = time.Second / 10

// SimDriver stands in for the serial servo during development and testing.
// It accepts every command instantly; the controller's motion loop animates
// the logical position, so from the client's point of view the simulated
// device moves just like the real one.
type SimDriver struct {
	mu sync.Mutex

	targetTick int
	velocity   int
	torque     bool
	load       float64

	stop chan struct{}
}

func NewSimDriver() (sim *SimDriver) {
	sim = new(SimDriver)
	sim.torque = true
	sim.stop = make(chan struct{})
	go sim.update()
	return
}

func (s *SimDriver) Goto(tick, velocityPercent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetTick = tick
	s.velocity = velocityPercent
	return nil
}

func (s *SimDriver) SetTorque(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.torque = enabled
	return nil
}

func (s *SimDriver) ReadPosition() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetTick, nil
}

func (s *SimDriver) ReadLoad() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load, nil
}

func (s *SimDriver) Firmware() (string, error) {
	return "0.1.0", nil
}

func (s *SimDriver) Close() error {
	close(s.stop)
	return nil
}

// LastTarget reports the most recently staged target tick. Test hook.
func (s *SimDriver) LastTarget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetTick
}

// TorqueEnabled reports the staged torque flag. Test hook.
func (s *SimDriver) TorqueEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torque
}

func (s *SimDriver) update() {
	for {
		select {
		case <-s.stop:
			return
		case <-time.After(LOAD_INTERVAL):
		}

		s.mu.Lock()
		if s.torque {
			s.load += rand.Float64()*LOAD_DELTA*2 - LOAD_DELTA
			if s.load < 0 {
				s.load = 0
			}
		} else {
			s.load = 0
		}
		s.mu.Unlock()
	}
}
