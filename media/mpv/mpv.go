// Package mpv implements media.Primitive on top of an mpv process driven through its JSON-IPC socket.
//
// Every primitive owns one idle mpv started on the first Load. Items are loaded paused with
// loadfile, buffer telemetry is polled from demuxer-cache-state and cache stalls and end of
// file arrive through observed properties.
package mpv

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/samber/lo"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second

	defaultPollInterval = 500 * time.Millisecond
)

// ErrExited is reported when the mpv process goes away on its own.
var ErrExited = errors.New("mpv exited")

// Config tunes the mpv backend.
type Config struct {
	// Path of the mpv executable, "mpv" from PATH when empty.
	Path string

	// PollInterval between two buffer samples.
	PollInterval time.Duration

	// Headers are sent with every HTTP request.
	Headers map[string]string
}

// Factory returns a media.Factory creating one mpv primitive per video.
func Factory(cfg Config) media.Factory {
	return func(id media.VideoID) (media.Primitive, error) {
		m := New(cfg)
		m.name = string(id)
		return m, nil
	}
}

// MPV is a media.Primitive backed by an mpv process.
type MPV struct {
	cfg    Config
	name   string
	client *client
	events *listener

	cmd     *exec.Cmd
	exited  chan struct{}
	closing chan struct{}

	mu             sync.Mutex
	started        bool
	starting       chan struct{}
	closed         bool
	loading        chan error
	pausedForCache bool
	subs           map[int]func(media.Event)
	nextSub        int

	tickerStop chan struct{}
	tickerDone chan struct{}
}

// New returns an mpv primitive. No process is started before the first Load.
func New(cfg Config) *MPV {
	if cfg.Path == "" {
		cfg.Path = "mpv"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &MPV{
		cfg:     cfg,
		closing: make(chan struct{}),
		subs:    make(map[int]func(media.Event)),
	}
}

// start launches mpv and connects the event listener once. The lock is only held to
// claim and publish the process, so controls never wait for the socket.
func (m *MPV) start() error {
	m.mu.Lock()
	for {
		if m.closed {
			m.mu.Unlock()
			return media.ErrClosed
		}
		if m.started {
			m.mu.Unlock()
			return nil
		}
		if m.starting == nil {
			break
		}

		wait := m.starting
		m.mu.Unlock()
		<-wait
		m.mu.Lock()
	}

	starting := make(chan struct{})
	m.starting = starting
	m.mu.Unlock()

	err := m.launch()

	m.mu.Lock()
	m.starting = nil
	m.mu.Unlock()
	close(starting)

	return err
}

// launch spawns mpv and waits for its socket without holding the lock.
func (m *MPV) launch() error {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("reelcore-%x.sock", randomBytes))

	cmd := exec.Command(m.cfg.Path, m.args(socketPath)...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	go m.reap(cmd, exited)

	abandon := func() {
		select {
		case <-exited:
		default:
			_ = killProcess(cmd)
		}
		_ = os.Remove(socketPath)
	}

	if err := waitForSocket(socketPath, exited, m.closing); err != nil {
		if errors.Is(err, media.ErrClosed) {
			abandon()
			return err
		}
		log.Warnf("mpv %s: killing, socket never became ready", m.name)
		abandon()
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	c := &client{socketPath: socketPath}
	events := newListener(socketPath, m.onEvent)
	if err := events.start(); err != nil {
		abandon()
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		events.stop()
		abandon()
		return media.ErrClosed
	}
	m.cmd, m.exited = cmd, exited
	m.client, m.events = c, events
	m.started = true
	m.mu.Unlock()

	log.Infof("mpv %s: started on %s", m.name, socketPath)
	return nil
}

func (m *MPV) args(socketPath string) []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--pause=yes",
		"--keep-open=yes",
		"--force-window=no",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}

	if m.name != "" {
		args = append(args, fmt.Sprintf("--title=%s", sanitizeTitle(m.name)))
	}

	headers := lo.MapToSlice(m.cfg.Headers, func(k, v string) string {
		return fmt.Sprintf("--http-header-fields-append=%s: %s", k, v)
	})

	return append(args, headers...)
}

// reap waits for the process so it never turns into a zombie, and reports
// an unexpected exit of the published process as a failure.
func (m *MPV) reap(cmd *exec.Cmd, exited chan struct{}) {
	_ = cmd.Wait()
	close(exited)

	m.mu.Lock()
	current := m.exited == exited && !m.closed
	m.mu.Unlock()

	if current {
		m.deliver(ErrExited)
		m.emit(media.Event{Kind: media.EventFailed, Err: ErrExited})
	}
}

func waitForSocket(socketPath string, exited, closing <-chan struct{}) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-exited:
			return ErrExited
		case <-closing:
			return media.ErrClosed
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socketPath, socketWaitRetries)
}

// Load replaces the current item with url and waits until mpv has opened it.
func (m *MPV) Load(ctx context.Context, url string) (media.Metadata, error) {
	target, err := sanitizeMediaTarget(url)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("invalid media target: %w", err)
	}

	if err := m.start(); err != nil {
		return media.Metadata{}, err
	}

	loaded := make(chan error, 1)
	m.mu.Lock()
	m.loading = loaded
	m.pausedForCache = false
	exited := m.exited
	m.mu.Unlock()

	if _, err := m.client.command("loadfile", target, "replace"); err != nil {
		m.abandonLoad(loaded)
		return media.Metadata{}, fmt.Errorf("loadfile: %w", err)
	}

	select {
	case <-ctx.Done():
		m.abandonLoad(loaded)
		_, _ = m.client.command("stop")
		return media.Metadata{}, ctx.Err()
	case <-exited:
		m.abandonLoad(loaded)
		return media.Metadata{}, ErrExited
	case err := <-loaded:
		if err != nil {
			return media.Metadata{}, err
		}
	}

	meta := media.Metadata{Title: target}
	if d, err := m.client.float("duration"); err == nil {
		meta.Duration = d
	}
	if title, err := m.client.command("get_property", "media-title"); err == nil {
		if s, ok := title.(string); ok && s != "" {
			meta.Title = s
		}
	}

	m.startTicker()
	return meta, nil
}

// abandonLoad forgets a Load that stopped waiting, so later file events are
// reported as events again.
func (m *MPV) abandonLoad(ch chan error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading == ch {
		m.loading = nil
	}
}

// deliver completes a pending Load.
func (m *MPV) deliver(err error) bool {
	m.mu.Lock()
	ch := m.loading
	m.loading = nil
	m.mu.Unlock()

	if ch == nil {
		return false
	}
	ch <- err
	return true
}

func (m *MPV) onEvent(msg ipcMessage) {
	switch {
	case msg.Event == "file-loaded":
		m.deliver(nil)
		return
	case msg.Event == "end-file" && msg.Reason == "error":
		if m.deliver(endFileError(msg)) {
			return
		}
	case msg.Event == "property-change" && msg.Name == "paused-for-cache":
		paused, _ := msg.Data.(bool)
		m.mu.Lock()
		m.pausedForCache = paused
		m.mu.Unlock()
	}

	if ev, ok := translate(msg); ok {
		m.emit(ev)
	}
}

func (m *MPV) ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return media.ErrClosed
	}
	if !m.started {
		return errors.New("mpv: nothing loaded")
	}
	return nil
}

func (m *MPV) Play() error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.client.set("pause", false)
}

func (m *MPV) Pause() error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.client.set("pause", true)
}

func (m *MPV) Seek(seconds float64) error {
	if err := m.ready(); err != nil {
		return err
	}
	_, err := m.client.command("seek", seconds, "absolute")
	return err
}

func (m *MPV) SetRate(rate float32) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.client.set("speed", float64(rate))
}

// SetMuted implements media.Muter.
func (m *MPV) SetMuted(muted bool) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.client.set("mute", muted)
}

// Subscribe registers fn for pushed events.
func (m *MPV) Subscribe(fn func(media.Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *MPV) emit(ev media.Event) {
	m.mu.Lock()
	subs := lo.Values(m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// startTicker polls buffer telemetry until Close.
func (m *MPV) startTicker() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tickerStop != nil || m.closed {
		return
	}

	stop, done := make(chan struct{}), make(chan struct{})
	m.tickerStop, m.tickerDone = stop, done
	exited := m.exited

	go func() {
		defer close(done)

		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-exited:
				return
			case <-ticker.C:
				m.poll()
			}
		}
	}()
}

func (m *MPV) poll() {
	pos, err := m.client.float("time-pos")
	if err != nil {
		return
	}

	cache, err := m.client.command("get_property", "demuxer-cache-state")
	if err != nil && !errors.Is(err, ErrPropertyUnavailable) {
		log.Debugf("mpv %s: cache state: %v", m.name, err)
		return
	}

	m.mu.Lock()
	paused := m.pausedForCache
	m.mu.Unlock()

	m.emit(media.Event{Kind: media.EventBufferChanged, Buffer: parseCacheState(cache, pos, paused)})
}

// Close quits mpv, killing it when it does not leave in time. It is idempotent.
func (m *MPV) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.closing)
	started := m.started
	stop, done := m.tickerStop, m.tickerDone
	m.subs = make(map[int]func(media.Event))
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	if !started {
		return nil
	}

	m.events.stop()
	_, _ = m.client.command("quit")

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.client.socketPath)
	log.Debugf("mpv %s: closed", m.name)
	return nil
}
