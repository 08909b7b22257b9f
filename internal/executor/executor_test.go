package executor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	cmd := parseLine("g1 X10.5 Y-2 ; move")
	require.NotNil(t, cmd)
	require.Equal(t, "G1", cmd.Name)
	require.Equal(t, "g1 X10.5 Y-2", cmd.Raw)
	require.Equal(t, "10.5", cmd.Get("x", ""))
	require.Equal(t, "-2", cmd.Get("Y", ""))
	require.False(t, cmd.Has("Z"))

	cmd = parseLine("SDCARD_PRINT_FILE FILENAME=sub/part.gcode")
	require.Equal(t, "SDCARD_PRINT_FILE", cmd.Name)
	require.Equal(t, "sub/part.gcode", cmd.Get("FILENAME", ""))

	require.Nil(t, parseLine("   ; only a comment"))
	require.Nil(t, parseLine(""))
}

func TestCommand_GetInt(t *testing.T) {
	cmd := parseLine("M26 S120")
	v, err := cmd.GetInt("S", 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(120), v)

	_, err = parseLine("M26 S-1").GetInt("S", 0, 0)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)

	_, err = parseLine("M26 Sabc").GetInt("S", 0, 0)
	require.ErrorAs(t, err, &cmdErr)
}

func TestExecutor_RoutesToHandlers(t *testing.T) {
	var out bytes.Buffer
	var seen []string
	e := New(WithOutput(&out), WithFallback(func(ctx context.Context, cmd *Command) error {
		seen = append(seen, "fallback:"+cmd.Name)
		return nil
	}))
	require.NoError(t, e.Register("M27", func(ctx context.Context, cmd *Command) error {
		cmd.Respond("SD printing byte 0/0")
		return nil
	}, "report"))

	require.NoError(t, e.Run(context.Background(), "G28\nM27\n\n; comment\nG1 X1"))
	require.Equal(t, []string{"fallback:G28", "fallback:G1"}, seen)
	require.Equal(t, "SD printing byte 0/0\n", out.String())
}

func TestExecutor_RegisterTwiceFails(t *testing.T) {
	e := New()
	h := func(ctx context.Context, cmd *Command) error { return nil }
	require.NoError(t, e.Register("M20", h, ""))
	require.Error(t, e.Register("m20", h, ""))
}

func TestExecutor_UnknownCommandWithoutFallback(t *testing.T) {
	e := New()
	err := e.Run(context.Background(), "FOO")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Contains(t, cmdErr.Error(), "Unknown command")
}

func TestExecutor_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	e := New(WithFallback(func(ctx context.Context, cmd *Command) error {
		calls++
		if cmd.Name == "BAD" {
			return cmd.Errorf("bad command")
		}
		return nil
	}))
	err := e.Run(context.Background(), "OK\nBAD\nOK")
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestExecutor_RunHonoursCancelledContext(t *testing.T) {
	e := New(WithFallback(func(ctx context.Context, cmd *Command) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Run(ctx, "G28")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestGate_TryLockWhileHeld(t *testing.T) {
	var g Gate
	require.False(t, g.Held())
	require.True(t, g.TryLock())
	require.True(t, g.Held())
	require.False(t, g.TryLock())
	g.Unlock()
	require.False(t, g.Held())
}

func TestGate_SerialisesRunCallers(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex
	e := New(WithFallback(func(ctx context.Context, cmd *Command) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Run(context.Background(), "G4")
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxActive)
}

func TestSource_RoundTrip(t *testing.T) {
	ctx := context.Background()
	require.False(t, FromFile(ctx))

	ctx = WithSource(ctx, Source{FromFile: true, Line: 7})
	require.True(t, FromFile(ctx))
	require.Equal(t, int64(7), SourceFrom(ctx).Line)
}

func TestScript_Render(t *testing.T) {
	s, err := ParseScript("on_error_gcode", `
{{ if .Heaters }}
  TURN_OFF_HEATERS
{{ end }}
M118 failed at line {{ .Line }}
`)
	require.NoError(t, err)

	out, err := s.Render(map[string]any{"Heaters": true, "Line": 12})
	require.NoError(t, err)
	require.Equal(t, "TURN_OFF_HEATERS\nM118 failed at line 12", out)

	out, err = s.Render(map[string]any{"Heaters": false, "Line": 3})
	require.NoError(t, err)
	require.Equal(t, "M118 failed at line 3", out)
}
