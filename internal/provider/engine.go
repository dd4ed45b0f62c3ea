package provider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const handshakeTimeout = 4 * time.Second

// Engine drives a UCI chess engine subprocess (e.g. Stockfish) over its
// stdin/stdout text protocol.
type Engine struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines carries engine output, one trimmed line per receive. A single
	// goroutine owns the stdout pipe and closes the channel on EOF.
	lines chan string

	// search serializes position/go/bestmove exchanges.
	search sync.Mutex

	// needsResync is set when a search was abandoned mid-protocol (reply
	// timeout); the next search must drain the engine first. Guarded by
	// search.
	needsResync bool

	moveTime     time.Duration
	replyTimeout time.Duration
}

// NewEngine starts the engine binary and performs the uci/isready handshake.
func NewEngine(ctx context.Context, binaryPath string, moveTime time.Duration) (*Engine, error) {
	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	e := &Engine{
		cmd:          cmd,
		stdin:        stdin,
		lines:        make(chan string, 64),
		moveTime:     moveTime,
		replyTimeout: handshakeTimeout,
	}

	go func() {
		r := bufio.NewReader(stdoutPipe)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(e.lines)
				return
			}
			e.lines <- strings.TrimSpace(line)
		}
	}()

	if err := e.send("uci\n"); err != nil {
		e.Close()
		return nil, err
	}
	if _, err := e.readUntilPrefix("uciok", handshakeTimeout); err != nil {
		e.Close()
		return nil, fmt.Errorf("uci handshake: %w", err)
	}
	if err := e.awaitReady(); err != nil {
		e.Close()
		return nil, fmt.Errorf("engine not ready: %w", err)
	}
	return e, nil
}

// ProposeMove asks the engine for its best move in the given line.
func (e *Engine) ProposeMove(ctx context.Context, movesUCI []string) (string, error) {
	e.search.Lock()
	defer e.search.Unlock()

	if e.needsResync {
		if err := e.resync(); err != nil {
			return "", fmt.Errorf("resync after abandoned search: %w", err)
		}
		e.needsResync = false
	}

	position := "position startpos"
	if len(movesUCI) > 0 {
		position += " moves " + strings.Join(movesUCI, " ")
	}
	if err := e.send(position + "\n"); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}
	if err := e.send(fmt.Sprintf("go movetime %d\n", e.moveTime.Milliseconds())); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	deadline := e.moveTime + e.replyTimeout
	if d, ok := ctx.Deadline(); ok {
		if until := time.Until(d); until < deadline {
			deadline = until
		}
	}

	line, err := e.readUntilPrefix("bestmove ", deadline)
	if err != nil {
		// The engine still owes a bestmove for this search; skip it
		// before reusing the connection.
		e.needsResync = true
		return "", err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" {
		return "", fmt.Errorf("engine returned no move")
	}
	return strings.ToLower(fields[1]), nil
}

// Close asks the engine to quit and reaps the process.
func (e *Engine) Close() error {
	_ = e.send("quit\n")
	_ = e.stdin.Close()
	return e.cmd.Wait()
}

func (e *Engine) send(s string) error {
	_, err := io.WriteString(e.stdin, s)
	return err
}

// awaitReady performs an isready/readyok exchange.
func (e *Engine) awaitReady() error {
	if err := e.send("isready\n"); err != nil {
		return err
	}
	_, err := e.readUntilPrefix("readyok", handshakeTimeout)
	return err
}

// resync recovers from an abandoned search: stop forces the engine to flush
// the pending bestmove, and UCI guarantees the readyok answer comes after
// it, so draining to readyok discards the stale reply.
func (e *Engine) resync() error {
	if err := e.send("stop\n"); err != nil {
		return err
	}
	return e.awaitReady()
}

// readUntilPrefix consumes engine output lines until one starts with prefix.
func (e *Engine) readUntilPrefix(prefix string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return "", fmt.Errorf("engine closed its output stream")
			}
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		case <-timer.C:
			return "", fmt.Errorf("timed out waiting for %q", prefix)
		}
	}
}
