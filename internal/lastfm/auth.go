package lastfm

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// DefaultCallbackAddr is where the login callback listens unless told otherwise.
const DefaultCallbackAddr = "localhost:9847"

var (
	// ErrAuthTimeout is returned when the browser never came back.
	ErrAuthTimeout = errors.New("lastfm: timed out waiting for authorization")
	// ErrAuthDenied is returned when the callback arrived without a token.
	ErrAuthDenied = errors.New("lastfm: authorization returned no token")
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>Cleftly - Last.fm</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</body>
</html>`))

// Callback is a local HTTP endpoint that receives the redirect ending a
// web login.
type Callback struct {
	srv    *http.Server
	addr   net.Addr
	tokens chan string
	done   chan struct{}
}

// ListenCallback starts the callback endpoint on addr ("host:0" picks a
// free port).
func ListenCallback(addr string) (*Callback, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("lastfm: listen for callback on %s: %w", addr, err)
	}

	c := &Callback{
		addr:   ln.Addr(),
		tokens: make(chan string, 1),
		done:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", c.handle)
	c.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		defer close(c.done)
		_ = c.srv.Serve(ln)
	}()
	return c, nil
}

func (c *Callback) handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	page := struct{ Title, Body string }{
		"Authorization successful", "You can close this window and return to Cleftly.",
	}
	if token == "" {
		page.Title, page.Body = "Authorization failed", "No token received. Please try again."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = callbackPage.Execute(w, page)

	select {
	case c.tokens <- token:
	default:
	}
}

// URL is the address Last.fm should redirect the browser to.
func (c *Callback) URL() string {
	return "http://" + c.addr.String() + "/callback"
}

// Wait returns the token of the first callback.
func (c *Callback) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	return waitToken(ctx, c.tokens, timeout)
}

// Close stops the endpoint.
func (c *Callback) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.srv.Shutdown(ctx)
	<-c.done
	return err
}

func waitToken(ctx context.Context, tokens <-chan string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case token := <-tokens:
		if token == "" {
			return "", ErrAuthDenied
		}
		return token, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// OpenURL asks the desktop to open u in a browser.
func OpenURL(ctx context.Context, u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", u)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", u)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", u, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
