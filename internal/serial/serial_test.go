package serial

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openPTY 返回 master 端和 slave 端设备路径
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { master.Close(); slave.Close() })
	return master, slave.Name()
}

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	got := make(chan []byte, 1)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			errs <- err
			return
		}
		got <- buf
	}()
	select {
	case b := <-got:
		return b
	case err := <-errs:
		t.Fatalf("read from master: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for data on master")
	}
	return nil
}

func uartConfig(device string) config.Port {
	return config.Port{
		Device:    device,
		Type:      "uart",
		Baudrate:  9600,
		TimeoutMs: config.DefaultTimeoutMs,
	}
}

func TestUARTPortWritesThroughPTY(t *testing.T) {
	master, device := openPTY(t)

	p, err := OpenPort(uartConfig(device), "")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	assert.Equal(t, device, p.Name())

	line := []byte("ab1!你😀\n")
	n, err := WriteAll(p, line)
	require.NoError(t, err)
	require.Equal(t, len(line), n)

	assert.Equal(t, line, readN(t, master, len(line)))
}

func TestUARTPortOpenFailure(t *testing.T) {
	device := filepath.Join(t.TempDir(), "ttyMissing")
	p, err := OpenPort(uartConfig(device), "")
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Equal(t, errors.KindCommunicationError, errors.Kind(err))
	assert.Contains(t, err.Error(), device)
}

func TestUARTPortCloseIsIdempotent(t *testing.T) {
	_, device := openPTY(t)
	p, err := OpenPort(uartConfig(device), "")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Write([]byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.KindIOError, errors.Kind(err))
}

func TestNewPortUnknownType(t *testing.T) {
	_, err := NewPort(config.Port{Type: "can"}, "")
	require.Error(t, err)
}

func fakeGPIO(t *testing.T, pin int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, fmt.Sprintf("gpio%d", pin))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{filepath.Join(root, "export"), filepath.Join(dir, "direction"), filepath.Join(dir, "value")} {
		require.NoError(t, os.WriteFile(f, nil, 0o600))
	}
	return root
}

func TestRS485PortDrivesDirectionPin(t *testing.T) {
	master, device := openPTY(t)
	root := fakeGPIO(t, 914)

	cfg := uartConfig(device)
	cfg.Type = "rs485"
	cfg.Baudrate = 115200
	cfg.DEPin = 914

	p, err := OpenPort(cfg, root)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	export, err := os.ReadFile(filepath.Join(root, "export"))
	require.NoError(t, err)
	assert.Equal(t, "914", string(export))
	dir, err := os.ReadFile(filepath.Join(root, "gpio914", "direction"))
	require.NoError(t, err)
	assert.Equal(t, "out", string(dir))

	line := []byte("rs485 ✓\n")
	_, err = WriteAll(p, line)
	require.NoError(t, err)
	assert.Equal(t, line, readN(t, master, len(line)))

	// 发送结束后回到接收电平
	value, err := os.ReadFile(filepath.Join(root, "gpio914", "value"))
	require.NoError(t, err)
	assert.Equal(t, "0", string(value))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestRS485PortOpenFailsWithoutGPIO(t *testing.T) {
	_, device := openPTY(t)
	cfg := uartConfig(device)
	cfg.Type = "rs485"
	cfg.DEPin = 914

	_, err := OpenPort(cfg, filepath.Join(t.TempDir(), "nogpio"))
	require.Error(t, err)
	assert.Equal(t, errors.KindCommunicationError, errors.Kind(err))
}

func TestDrainTime(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, drainTime(96, 96000))
	assert.Equal(t, time.Duration(0), drainTime(10, 0))
}
