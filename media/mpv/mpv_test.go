package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/reelcore/reelcore/media"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV answers IPC commands over a unix socket the way mpv does.
type fakeMPV struct {
	ln       net.Listener
	mu       sync.Mutex
	commands [][]interface{}
	reply    func(cmd []interface{}) string
	wg       sync.WaitGroup
}

func newFakeMPV(t *testing.T, reply func(cmd []interface{}) string) *fakeMPV {
	path := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}

	f := &fakeMPV{ln: ln, reply: reply}
	f.wg.Add(1)
	go f.serve()
	return f
}

func (f *fakeMPV) path() string {
	return f.ln.Addr().String()
}

func (f *fakeMPV) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	defer f.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			return
		}

		f.mu.Lock()
		f.commands = append(f.commands, cmd.Command)
		f.mu.Unlock()

		if _, err := conn.Write([]byte(f.reply(cmd.Command) + "\n")); err != nil {
			return
		}
	}
}

func (f *fakeMPV) close() {
	f.ln.Close()
	f.wg.Wait()
}

func (f *fakeMPV) sent() [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]interface{}(nil), f.commands...)
}

func TestClient(t *testing.T) {
	Convey("Given a socket that broadcasts an event before each reply", t, func() {
		fake := newFakeMPV(t, func(cmd []interface{}) string {
			event := `{"event":"playback-restart"}` + "\n"
			switch cmd[0] {
			case "get_property":
				if cmd[1] == "duration" {
					return event + `{"data":12.5,"error":"success"}`
				}
				return event + `{"data":null,"error":"property unavailable"}`
			case "bogus":
				return `{"error":"invalid parameter"}`
			default:
				return event + `{"data":null,"error":"success"}`
			}
		})
		defer fake.close()

		c := &client{socketPath: fake.path()}

		Convey("A float property is read past the event", func() {
			d, err := c.float("duration")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 12.5)
		})

		Convey("An unavailable property is reported without retrying", func() {
			_, err := c.float("time-pos")
			So(errors.Is(err, ErrPropertyUnavailable), ShouldBeTrue)
			So(fake.sent(), ShouldHaveLength, 1)
		})

		Convey("Setting a property sends set_property", func() {
			So(c.set("speed", 2.5), ShouldBeNil)
			So(fake.sent()[0], ShouldResemble, []interface{}{"set_property", "speed", 2.5})
		})

		Convey("mpv errors are returned as is", func() {
			_, err := c.command("bogus")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid parameter")
		})
	})

	Convey("A missing socket fails after retries", t, func() {
		c := &client{socketPath: filepath.Join(t.TempDir(), "none.sock")}
		_, err := c.command("get_property", "pid")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "after 3 attempts")
	})
}

func TestListener(t *testing.T) {
	Convey("Given a socket pushing property changes", t, func() {
		fake := newFakeMPV(t, func(cmd []interface{}) string {
			if cmd[0] == "observe_property" && cmd[2] == "eof-reached" {
				return `{"error":"success"}` + "\n" +
					`{"event":"property-change","id":1,"name":"paused-for-cache","data":true}` + "\n" +
					`{"event":"end-file","reason":"error","file_error":"loading failed"}`
			}
			return `{"error":"success"}`
		})
		defer fake.close()

		got := make(chan ipcMessage, 8)
		l := newListener(fake.path(), func(msg ipcMessage) { got <- msg })
		So(l.start(), ShouldBeNil)
		defer l.stop()

		Convey("Observers are registered and events forwarded", func() {
			var msgs []ipcMessage
			for len(msgs) < 2 {
				select {
				case msg := <-got:
					msgs = append(msgs, msg)
				case <-time.After(2 * time.Second):
					So(len(msgs), ShouldEqual, 2)
					return
				}
			}

			So(msgs[0].Name, ShouldEqual, "paused-for-cache")
			So(msgs[1].Event, ShouldEqual, "end-file")
			So(msgs[1].FileError, ShouldEqual, "loading failed")

			sent := fake.sent()
			So(sent, ShouldHaveLength, 2)
			So(sent[0][0], ShouldEqual, "observe_property")
		})
	})
}

func TestTranslate(t *testing.T) {
	Convey("Cache pauses become stalls", t, func() {
		ev, ok := translate(ipcMessage{Event: "property-change", Name: "paused-for-cache", Data: true})
		So(ok, ShouldBeTrue)
		So(ev.Kind, ShouldEqual, media.EventStalled)

		_, ok = translate(ipcMessage{Event: "property-change", Name: "paused-for-cache", Data: false})
		So(ok, ShouldBeFalse)
	})

	Convey("End of file is reported once reached", t, func() {
		ev, ok := translate(ipcMessage{Event: "property-change", Name: "eof-reached", Data: true})
		So(ok, ShouldBeTrue)
		So(ev.Kind, ShouldEqual, media.EventReachedEnd)
	})

	Convey("File errors fail playback", t, func() {
		ev, ok := translate(ipcMessage{Event: "end-file", Reason: "error", FileError: "unrecognized file format"})
		So(ok, ShouldBeTrue)
		So(ev.Kind, ShouldEqual, media.EventFailed)
		So(ev.Err.Error(), ShouldContainSubstring, "unrecognized file format")
	})

	Convey("Other events are ignored", t, func() {
		_, ok := translate(ipcMessage{Event: "playback-restart"})
		So(ok, ShouldBeFalse)
	})
}

func TestParseCacheState(t *testing.T) {
	Convey("Seekable ranges give the buffered-ahead", t, func() {
		data := map[string]interface{}{
			"seekable-ranges": []interface{}{
				map[string]interface{}{"start": 0.0, "end": 8.0},
			},
		}
		state := parseCacheState(data, 3, false)
		So(state.Ranges, ShouldResemble, []media.TimeRange{{Start: 0, End: 8}})
		So(state.LikelyToKeepUp, ShouldBeTrue)
		So(state.Empty, ShouldBeFalse)
	})

	Convey("cache-end is used without seekable ranges", t, func() {
		state := parseCacheState(map[string]interface{}{"cache-end": 4.0}, 3, false)
		So(state.Ranges, ShouldResemble, []media.TimeRange{{Start: 3, End: 4}})
		So(state.LikelyToKeepUp, ShouldBeFalse)
	})

	Convey("An underrun is not likely to keep up", t, func() {
		data := map[string]interface{}{"cache-end": 20.0, "underrun": true}
		So(parseCacheState(data, 0, false).LikelyToKeepUp, ShouldBeFalse)
	})

	Convey("A cache pause is not likely to keep up", t, func() {
		So(parseCacheState(map[string]interface{}{"cache-end": 20.0}, 0, true).LikelyToKeepUp, ShouldBeFalse)
	})

	Convey("A fully cached file keeps up even at the very end", t, func() {
		data := map[string]interface{}{"cache-end": 10.0, "eof": true}
		state := parseCacheState(data, 9.5, false)
		So(state.LikelyToKeepUp, ShouldBeTrue)
		So(state.Empty, ShouldBeFalse)
	})

	Convey("No cache state at all is empty", t, func() {
		state := parseCacheState(nil, 1, false)
		So(state.Empty, ShouldBeTrue)
		So(state.Position, ShouldEqual, 1)
	})
}

func TestSanitize(t *testing.T) {
	Convey("http and https URLs pass", t, func() {
		u, err := sanitizeMediaTarget("  https://cdn.test/a.mp4 ")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "https://cdn.test/a.mp4")
	})

	Convey("Flags, control characters and other schemes are refused", t, func() {
		for _, bad := range []string{"", "--script=evil.lua", "a\nb", "file:///etc/passwd", "ytdl://x"} {
			_, err := sanitizeMediaTarget(bad)
			So(err, ShouldNotBeNil)
		}
	})

	Convey("Local paths are cleaned", t, func() {
		p, err := sanitizeMediaTarget("clips/../clips/a.mp4")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, filepath.Clean("clips/a.mp4"))
	})

	Convey("Titles are flattened to one line", t, func() {
		So(sanitizeTitle(" a\nb\tc\x00 "), ShouldEqual, "a b c")
	})
}

func TestPrimitiveBeforeStart(t *testing.T) {
	Convey("Given an mpv primitive that was never loaded", t, func() {
		m := New(Config{Path: filepath.Join(t.TempDir(), "no-such-mpv")})

		Convey("Controls fail without starting a process", func() {
			So(m.Play(), ShouldNotBeNil)
			So(m.SetRate(2), ShouldNotBeNil)
		})

		Convey("An invalid target is refused before spawning", func() {
			_, err := m.Load(context.Background(), "-oops")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid media target")
		})

		Convey("A missing executable fails the load", func() {
			_, err := m.Load(context.Background(), "https://cdn.test/a.mp4")
			So(err, ShouldNotBeNil)
		})

		Convey("Close is idempotent and later loads fail", func() {
			So(m.Close(), ShouldBeNil)
			So(m.Close(), ShouldBeNil)
			_, err := m.Load(context.Background(), "https://cdn.test/a.mp4")
			So(errors.Is(err, media.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestSlowStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell script standing in for mpv")
	}

	Convey("Given an mpv that never opens its socket", t, func() {
		path := filepath.Join(t.TempDir(), "mpv")
		So(os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 20\n"), 0o755), ShouldBeNil)

		m := New(Config{Path: path})
		result := make(chan error, 1)
		go func() {
			_, err := m.Load(context.Background(), "https://cdn.test/a.mp4")
			result <- err
		}()
		time.Sleep(100 * time.Millisecond)

		Convey("Controls answer while the process is starting", func() {
			began := time.Now()
			unsubscribe := m.Subscribe(func(media.Event) {})
			unsubscribe()
			So(m.Pause(), ShouldNotBeNil)
			So(time.Since(began), ShouldBeLessThan, 200*time.Millisecond)

			So(m.Close(), ShouldBeNil)
		})

		Convey("Close aborts the start", func() {
			So(m.Close(), ShouldBeNil)

			var err error
			select {
			case err = <-result:
			case <-time.After(time.Second):
				err = errors.New("load still waiting after close")
			}
			So(errors.Is(err, media.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestAbandonedLoad(t *testing.T) {
	Convey("Given a load that stopped waiting", t, func() {
		m := New(Config{})
		loaded := make(chan error, 1)
		m.loading = loaded
		m.abandonLoad(loaded)

		var got []media.Event
		m.Subscribe(func(ev media.Event) { got = append(got, ev) })

		Convey("A late file error is reported as a failure", func() {
			m.onEvent(ipcMessage{Event: "end-file", Reason: "error", FileError: "gone"})

			So(got, ShouldHaveLength, 1)
			So(got[0].Kind, ShouldEqual, media.EventFailed)
			So(loaded, ShouldBeEmpty)
		})

		Convey("A newer load is left alone", func() {
			newer := make(chan error, 1)
			m.loading = newer
			m.abandonLoad(loaded)

			So(m.deliver(nil), ShouldBeTrue)
			So(<-newer, ShouldBeNil)
		})
	})
}
