package provider

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

const fakeEngineScript = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name fake"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) echo "info depth 1"; echo "bestmove e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

// The first search stalls past any reasonable reply window; later searches
// answer promptly. The stalled bestmove is flushed before readyok, which is
// the ordering real engines guarantee for stop/isready.
const stallingEngineScript = `#!/bin/sh
count=0
while read line; do
  case "$line" in
    uci) echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) count=$((count+1))
      if [ "$count" -eq 1 ]; then
        sleep 1
        echo "bestmove e2e4"
      else
        echo "bestmove d2d4"
      fi ;;
    quit) exit 0 ;;
  esac
done
`

func TestEngineProposeMove(t *testing.T) {
	path := writeFakeEngine(t, fakeEngineScript)

	eng, err := NewEngine(context.Background(), path, 10*time.Millisecond)
	require.NoError(t, err)
	defer eng.Close()

	move, err := eng.ProposeMove(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)

	move, err = eng.ProposeMove(context.Background(), []string{"e2e4", "e7e5"})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)
}

func TestEngineRecoversAfterReplyTimeout(t *testing.T) {
	path := writeFakeEngine(t, stallingEngineScript)

	eng, err := NewEngine(context.Background(), path, 10*time.Millisecond)
	require.NoError(t, err)
	defer eng.Close()
	eng.replyTimeout = 100 * time.Millisecond

	// The stalled search must time out rather than hang.
	_, err = eng.ProposeMove(context.Background(), nil)
	require.Error(t, err)

	// The next search must not consume the stale bestmove the first search
	// eventually emits; after resync it gets its own reply.
	move, err := eng.ProposeMove(context.Background(), []string{"e2e4"})
	require.NoError(t, err)
	assert.Equal(t, "d2d4", move)
}
