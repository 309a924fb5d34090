package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command []interface{} `json:"command"`
}

// ipcMessage is any line mpv writes back: a reply, or an event when Event is set.
type ipcMessage struct {
	Event string      `json:"event,omitempty"`
	Name  string      `json:"name,omitempty"`
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`

	Reason    string `json:"reason,omitempty"`
	FileError string `json:"file_error,omitempty"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	readDeadline = 1 * time.Second
)

// ErrPropertyUnavailable is mpv's answer for properties that have no value yet,
// e.g. the duration before a file is loaded.
var ErrPropertyUnavailable = errors.New("property unavailable")

// client sends one-shot commands over fresh connections to the IPC socket.
type client struct {
	socketPath string
	mu         sync.Mutex
}

// command sends a JSON-IPC command, retrying transient connection errors.
func (c *client) command(args ...interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := roundTrip(c.socketPath, args)
		if err == nil {
			return result, nil
		}

		// mpv answered; retrying would get the same answer
		if errors.Is(err, ErrPropertyUnavailable) || strings.HasPrefix(err.Error(), "mpv error") {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *client) set(property string, value interface{}) error {
	_, err := c.command("set_property", property, value)
	return err
}

func (c *client) float(property string) (float64, error) {
	data, err := c.command("get_property", property)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", property, data)
	}

	return val, nil
}

// roundTrip performs a single command attempt. Events broadcast to the new connection
// before the reply are skipped.
func roundTrip(socketPath string, command []interface{}) (interface{}, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(ipcCommand{Command: command})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// mpv requires newline-delimited JSON
	if _, err = conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}

		if msg.Event != "" {
			continue
		}

		return msg.Data, replyError(msg.Error)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, errors.New("read: connection closed before reply")
}

func replyError(status string) error {
	switch status {
	case "", "success":
		return nil
	case "property unavailable":
		return ErrPropertyUnavailable
	default:
		return fmt.Errorf("mpv error: %s", status)
	}
}
