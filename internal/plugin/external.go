package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/session"
)

const (
	handshakeTimeout = 5 * time.Second
	shutdownTimeout  = 3 * time.Second
	maxLineSize      = 4 << 20
)

var errHandshakeTimeout = errors.New("handshake timed out")

// Message types of the stdio protocol. One JSON object per line.
const (
	// plugin -> host
	msgHello       = "hello"
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgPublish     = "publish"
	msgConfigGet   = "config.get"
	msgConfigSave  = "config.save"
	msgStateGet    = "state.get"
	msgLog         = "log"

	// host -> plugin
	msgEvent    = "event"
	msgConfig   = "config"
	msgState    = "state"
	msgShutdown = "shutdown"
)

type message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Level   string          `json:"level,omitempty"`
	Message string          `json:"message,omitempty"`
	Plugin  *Descriptor     `json:"plugin,omitempty"`
}

type statePayload struct {
	Audio  *session.Audio  `json:"audio"`
	Player *session.Player `json:"player"`
	Queue  *session.Queue  `json:"queue"`
}

// external is a plugin running as a child process.
type external struct {
	desc   Descriptor
	api    *API
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *zapio.Writer

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	enc     *json.Encoder

	subsMu sync.Mutex
	subs   map[string]events.Unsubscribe

	pending sync.WaitGroup
	exited  chan struct{}
}

var _ describer = (*external)(nil)

func (r *Runtime) externalFactory(id, path string) Factory {
	return Factory{
		Descriptor: Descriptor{ID: id},
		New: func(api *API) (Plugin, error) {
			return startExternal(r.command(path), api)
		},
	}
}

// startExternal runs cmd and waits for its hello.
func startExternal(cmd *exec.Cmd, api *API) (*external, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout: %w", err)
	}
	stderr := &zapio.Writer{Log: api.Log, Level: zapcore.DebugLevel}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	hello := make(chan error, 1)
	var desc Descriptor
	go func() {
		m, err := readMessage(sc)
		if err == nil && (m.Type != msgHello || m.Plugin == nil) {
			err = fmt.Errorf("expected hello, got %q", m.Type)
		}
		if err == nil {
			desc = *m.Plugin
		}
		hello <- err
	}()

	timer := time.NewTimer(handshakeTimeout)
	defer timer.Stop()
	select {
	case err = <-hello:
	case <-timer.C:
		err = errHandshakeTimeout
	}
	if err == nil && desc.ID != api.ID {
		err = fmt.Errorf("plugin announced id %q", desc.ID)
	}
	if err != nil {
		_ = cmd.Process.Kill()
		if errors.Is(err, errHandshakeTimeout) {
			<-hello
		}
		_ = cmd.Wait()
		_ = stderr.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &external{
		desc:   desc,
		api:    api,
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		ctx:    ctx,
		cancel: cancel,
		enc:    json.NewEncoder(stdin),
		subs:   make(map[string]events.Unsubscribe),
		exited: make(chan struct{}),
	}
	go e.readLoop(sc)
	return e, nil
}

func readMessage(sc *bufio.Scanner) (message, error) {
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			return message{}, fmt.Errorf("decode message: %w", err)
		}
		return m, nil
	}
	if err := sc.Err(); err != nil {
		return message{}, err
	}
	return message{}, io.EOF
}

func (e *external) Descriptor() Descriptor { return e.desc }

// readLoop serves the plugin until its stdout closes, then reaps the process.
func (e *external) readLoop(sc *bufio.Scanner) {
	defer close(e.exited)
	for {
		m, err := readMessage(sc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.api.Log.Warn("bad message from plugin", zap.Error(err))
			if sc.Err() != nil {
				break
			}
			continue
		}
		e.handle(m)
	}

	e.pending.Wait()
	e.dropSubscriptions()
	if err := e.cmd.Wait(); err != nil {
		e.api.Log.Debug("plugin process exited", zap.Error(err))
	}
	_ = e.stderr.Close()
}

func (e *external) handle(m message) {
	switch m.Type {
	case msgSubscribe:
		e.subscribe(m.ID, m.Name)
	case msgUnsubscribe:
		e.subsMu.Lock()
		unsub, ok := e.subs[m.ID]
		delete(e.subs, m.ID)
		e.subsMu.Unlock()
		if ok {
			unsub()
		}
	case msgPublish:
		payload := decodePayload(m.Name, m.Payload)
		e.pending.Go(func() { e.api.Events.Publish(e.ctx, m.Name, payload) })
	case msgConfigGet:
		raw, err := e.api.Config.Raw()
		if err != nil {
			e.api.Log.Warn("read plugin config", zap.Error(err))
			raw = json.RawMessage("{}")
		}
		e.reply(message{Type: msgConfig, ID: m.ID, Payload: raw})
	case msgConfigSave:
		doc := m.Payload
		if len(doc) == 0 {
			doc = json.RawMessage("{}")
		}
		if err := e.api.Config.Save(doc); err != nil {
			e.api.Log.Warn("save plugin config", zap.Error(err))
		}
	case msgStateGet:
		e.reply(message{Type: msgState, ID: m.ID, Payload: e.state()})
	case msgLog:
		e.logLine(m.Level, m.Message)
	default:
		e.api.Log.Debug("unknown message from plugin", zap.String("type", m.Type))
	}
}

func (e *external) subscribe(id, name string) {
	unsub := e.api.Events.Subscribe(name, func(_ context.Context, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", name, err)
		}
		return e.send(message{Type: msgEvent, ID: id, Name: name, Payload: data})
	})

	e.subsMu.Lock()
	old, ok := e.subs[id]
	e.subs[id] = unsub
	e.subsMu.Unlock()
	if ok {
		old()
	}
}

func (e *external) dropSubscriptions() {
	e.subsMu.Lock()
	subs := e.subs
	e.subs = make(map[string]events.Unsubscribe)
	e.subsMu.Unlock()
	for _, unsub := range subs {
		unsub()
	}
}

func (e *external) state() json.RawMessage {
	var st statePayload
	if e.api.State != nil {
		player, queue := e.api.State.Player(), e.api.State.Queue()
		st = statePayload{Audio: e.api.State.Audio(), Player: &player, Queue: &queue}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func (e *external) logLine(level, msg string) {
	switch level {
	case "error":
		e.api.Log.Error(msg)
	case "warn":
		e.api.Log.Warn(msg)
	case "debug":
		e.api.Log.Debug(msg)
	default:
		e.api.Log.Info(msg)
	}
}

func (e *external) reply(m message) {
	if err := e.send(m); err != nil {
		e.api.Log.Debug("reply to plugin", zap.Error(err))
	}
}

func (e *external) send(m message) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.enc.Encode(m); err != nil {
		return fmt.Errorf("write to plugin: %w", err)
	}
	return nil
}

// Destroy asks the process to exit and kills it if it does not within the
// shutdown timeout.
func (e *external) Destroy(ctx context.Context) error {
	e.dropSubscriptions()
	_ = e.send(message{Type: msgShutdown})
	_ = e.stdin.Close()

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()
	select {
	case <-e.exited:
		e.cancel()
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	e.api.Log.Warn("killing plugin process")
	e.cancel()
	if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill plugin: %w", err)
	}
	<-e.exited
	return nil
}

// decodePayload turns known event payloads into the types in-process
// subscribers expect. Others stay raw JSON.
func decodePayload(name string, raw json.RawMessage) any {
	var v any
	switch name {
	case events.OnLyricsLoaded:
		v = &session.LyricsLoaded{}
	case events.OnScrobble:
		v = &session.Scrobble{}
	case events.OnTrackChange, events.OnTrackPlay, events.OnLyricsRequested:
		v = &session.Audio{}
	case events.OnPlayerCommand:
		v = &session.Command{}
	case events.OnPlayerChange:
		v = &session.Player{}
	default:
		return raw
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return raw
	}
	switch p := v.(type) {
	case *session.LyricsLoaded:
		return *p
	case *session.Scrobble:
		return *p
	case *session.Audio:
		return *p
	case *session.Command:
		return *p
	case *session.Player:
		return *p
	}
	return raw
}
