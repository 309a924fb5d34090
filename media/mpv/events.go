package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/reelcore/reelcore/log"
)

// observed lists the properties the listener subscribes to with observe_property.
var observed = []string{
	"paused-for-cache",
	"eof-reached",
}

// listener keeps a persistent connection to mpv and forwards its events.
// Observers are registered on that same connection since mpv scopes them per client.
type listener struct {
	socketPath string
	callback   func(ipcMessage)

	mu   sync.Mutex
	conn net.Conn
	done chan struct{}
}

func newListener(socketPath string, callback func(ipcMessage)) *listener {
	return &listener{socketPath: socketPath, callback: callback}
}

// start connects, registers the observers and starts the read loop.
func (l *listener) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	conn, err := net.Dial("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observed {
		payload, err := json.Marshal(ipcCommand{Command: []interface{}{"observe_property", i + 1, name}})
		if err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	l.conn = conn
	l.done = make(chan struct{})
	go l.readLoop(conn, l.done)

	log.Debugf("mpv: event listener started on %s", l.socketPath)
	return nil
}

// stop closes the connection and waits for the read loop to exit.
func (l *listener) stop() {
	l.mu.Lock()
	conn, done := l.conn, l.done
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.Close()
	<-done
}

func (l *listener) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		// replies to observe_property carry no event
		if msg.Event == "" {
			continue
		}

		l.callback(msg)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warnf("mpv: event listener read error: %v", err)
	}
}
