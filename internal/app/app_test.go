package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/linjuya-lu/serial_tester_go/internal/serial"
	"github.com/linjuya-lu/serial_tester_go/internal/transmit"
)

type fakePort struct {
	name        string
	buf         bytes.Buffer
	writes      int
	closes      int
	cancelAfter int
	cancel      context.CancelFunc
	failAt      int
}

func (p *fakePort) Open() error  { return nil }
func (p *fakePort) Close() error { p.closes++; return nil }
func (p *fakePort) Name() string { return p.name }

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes++
	if p.failAt > 0 && p.writes == p.failAt {
		return 0, errors.New("input/output error")
	}
	if p.cancelAfter > 0 && p.writes == p.cancelAfter {
		p.cancel()
	}
	return p.buf.Write(b)
}

type harness struct {
	deps    Deps
	out     *bytes.Buffer
	port    *fakePort
	opened  []config.Port
	openErr error
}

func newHarness(ports []string, input string) *harness {
	h := &harness{out: &bytes.Buffer{}, port: &fakePort{}}
	h.deps = Deps{
		List: func() ([]serial.PortDescriptor, error) {
			out := make([]serial.PortDescriptor, len(ports))
			for i, n := range ports {
				out[i] = serial.PortDescriptor{Name: n}
			}
			return out, nil
		},
		Open: func(cfg config.Port, _ string) (serial.Port, error) {
			h.opened = append(h.opened, cfg)
			if h.openErr != nil {
				return nil, h.openErr
			}
			h.port.name = cfg.Device
			return h.port, nil
		},
		In:     strings.NewReader(input),
		Out:    h.out,
		Logger: logger.NewMockClient(),
	}
	return h
}

func testConfig() *config.TesterConfig {
	cfg := config.Default()
	cfg.IntervalMs = 0
	cfg.Seed = 11
	return cfg
}

func TestRunNoPorts(t *testing.T) {
	h := newHarness(nil, "")
	code := Run(context.Background(), testConfig(), h.deps)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, h.out.String(), "未发现可用串口")
	assert.Empty(t, h.opened)
}

func TestRunInvalidSelection(t *testing.T) {
	h := newHarness([]string{"/dev/ttyS0", "/dev/ttyS1"}, "2\n")
	code := Run(context.Background(), testConfig(), h.deps)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, h.out.String(), "无效的选择")
	assert.Empty(t, h.opened)
}

func TestRunInvalidBaudFallsBackAndOpens(t *testing.T) {
	h := newHarness([]string{"/dev/ttyS0"}, "0\nabc\n")
	h.openErr = errors.New("permission denied")
	code := Run(context.Background(), testConfig(), h.deps)
	assert.Equal(t, ExitFailure, code)
	require.Len(t, h.opened, 1)
	assert.Equal(t, 9600, h.opened[0].Baudrate)
	assert.Equal(t, "/dev/ttyS0", h.opened[0].Device)
	assert.Contains(t, h.out.String(), "打开串口失败: permission denied")
	assert.Zero(t, h.port.closes)
}

func TestRunCancelledClosesOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness([]string{"/dev/ttyUSB0"}, "\n115200\n")
	h.port.cancelAfter = 5
	h.port.cancel = cancel

	code := Run(ctx, testConfig(), h.deps)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, 5, h.port.writes)
	assert.Equal(t, 1, h.port.closes)
	assert.Equal(t, 115200, h.opened[0].Baudrate)
	assert.Equal(t, 5, strings.Count(h.port.buf.String(), "\n"))
	out := h.out.String()
	assert.Contains(t, out, "成功打开串口 /dev/ttyUSB0 (波特率: 115200)")
	assert.Contains(t, out, "已停止发送。")
	assert.Contains(t, out, "串口已关闭。")
}

func TestRunWriteFailureClosesOnce(t *testing.T) {
	h := newHarness([]string{"/dev/ttyUSB0"}, "\n\n")
	h.port.failAt = 3

	code := Run(context.Background(), testConfig(), h.deps)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, 1, h.port.closes)
	assert.Contains(t, h.out.String(), "发送失败: write line 3: input/output error")
	assert.Contains(t, h.out.String(), "串口已关闭。")
}

func TestRunPresetPortSkipsEnumeration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(nil, "")
	h.port.cancelAfter = 1
	h.port.cancel = cancel
	cfg := testConfig()
	cfg.Port.Device = "/dev/pts/3"
	cfg.Port.Baudrate = 38400

	code := Run(ctx, cfg, h.deps)
	assert.Equal(t, ExitOK, code)
	require.Len(t, h.opened, 1)
	assert.Equal(t, "/dev/pts/3", h.opened[0].Device)
	assert.Equal(t, 38400, h.opened[0].Baudrate)
	assert.Equal(t, config.DefaultTimeoutMs, h.opened[0].TimeoutMs)
}

type sliceMirror struct{ lines []string }

func (m *sliceMirror) PublishLine(_ int, line string) error {
	m.lines = append(m.lines, line)
	return nil
}

func TestRunMirrorsWhenBrokerConfigured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness([]string{"/dev/ttyUSB0"}, "\n\n")
	h.port.cancelAfter = 2
	h.port.cancel = cancel
	mirror := &sliceMirror{}
	released := 0
	h.deps.ConnectMirror = func(c config.MQTT, port string) (transmit.Mirror, func(), error) {
		assert.Equal(t, "/dev/ttyUSB0", port)
		return mirror, func() { released++ }, nil
	}
	cfg := testConfig()
	cfg.MQTT.Broker = "tcp://localhost:1883"

	code := Run(ctx, cfg, h.deps)
	assert.Equal(t, ExitOK, code)
	assert.Len(t, mirror.lines, 2)
	assert.Equal(t, mirror.lines[0]+"\n"+mirror.lines[1]+"\n", h.port.buf.String())
	assert.Equal(t, 1, released)
}

func TestRunMirrorFailureDoesNotStopRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness([]string{"/dev/ttyUSB0"}, "\n\n")
	h.port.cancelAfter = 2
	h.port.cancel = cancel
	h.deps.ConnectMirror = func(config.MQTT, string) (transmit.Mirror, func(), error) {
		return nil, nil, errors.New("connection refused")
	}
	cfg := testConfig()
	cfg.MQTT.Broker = "tcp://localhost:1883"

	assert.Equal(t, ExitOK, Run(ctx, cfg, h.deps))
	assert.Equal(t, 2, h.port.writes)
}

func TestRunListError(t *testing.T) {
	h := newHarness(nil, "")
	h.deps.List = func() ([]serial.PortDescriptor, error) { return nil, errors.New("udev unavailable") }
	assert.Equal(t, ExitFailure, Run(context.Background(), testConfig(), h.deps))
	assert.Contains(t, h.out.String(), "udev unavailable")
}

func TestRunCancelledDuringSelectionDoesNotOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness([]string{"/dev/ttyUSB0"}, "\n\n")

	code := Run(ctx, testConfig(), h.deps)
	assert.Equal(t, ExitOK, code)
	assert.Empty(t, h.opened)
	assert.Zero(t, h.port.closes)
	out := h.out.String()
	assert.Contains(t, out, "已停止发送。")
	assert.NotContains(t, out, "成功打开串口")
}

func TestRunCancelledWithPresetPortDoesNotOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness(nil, "")
	cfg := testConfig()
	cfg.Port.Device = "/dev/pts/3"
	cfg.Port.Baudrate = 9600

	assert.Equal(t, ExitOK, Run(ctx, cfg, h.deps))
	assert.Empty(t, h.opened)
}
