package collector

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	logindInterface   = "org.freedesktop.login1.Manager"
	prepareForSleep   = "PrepareForSleep"
	prepareSleepEvent = logindInterface + "." + prepareForSleep
)

// SleepMonitor watches systemd-logind for resume from suspend or hibernate.
// Battery levels can move a lot while asleep, so the history window uses it
// to refresh immediately after wake instead of waiting for the next tick.
type SleepMonitor struct {
	conn *dbus.Conn
	sigs chan *dbus.Signal
	done chan struct{}
	wake chan struct{}
	log  *slog.Logger
}

// NewSleepMonitor subscribes to PrepareForSleep on the system bus.
func NewSleepMonitor(logger *slog.Logger) (*SleepMonitor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	err = conn.AddMatchSignal(
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(prepareForSleep),
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	m := &SleepMonitor{
		conn: conn,
		sigs: make(chan *dbus.Signal, 16),
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
		log:  logger,
	}
	conn.Signal(m.sigs)
	go m.listen()
	return m, nil
}

// Wake receives a value each time the system resumes. Wakes that arrive
// while a previous one is still pending are coalesced.
func (m *SleepMonitor) Wake() <-chan struct{} {
	return m.wake
}

// Close stops the monitor and releases the bus connection.
func (m *SleepMonitor) Close() error {
	close(m.done)
	m.conn.RemoveSignal(m.sigs)
	return m.conn.Close()
}

func (m *SleepMonitor) listen() {
	for {
		select {
		case sig := <-m.sigs:
			if sig == nil || sig.Name != prepareSleepEvent || len(sig.Body) < 1 {
				continue
			}
			sleeping, ok := sig.Body[0].(bool)
			if !ok {
				continue
			}
			if sleeping {
				m.log.Debug("system going to sleep", "topic", "gui")
				continue
			}
			m.log.Debug("system woke up", "topic", "gui")
			select {
			case m.wake <- struct{}{}:
			default:
			}
		case <-m.done:
			return
		}
	}
}
