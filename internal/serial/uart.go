package serial

import (
	"fmt"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/tarm/serial"
)

// UARTPort 基于 tarm/serial 的普通串口，固定 8/N/1
type UARTPort struct {
	cfg    config.Port
	handle *serial.Port
}

func NewUARTPort(cfg config.Port) Port {
	return &UARTPort{cfg: cfg}
}

func tarmConfig(cfg config.Port) *serial.Config {
	return &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baudrate,
		ReadTimeout: cfg.ReadTimeout(),
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
}

func (u *UARTPort) Open() error {
	p, err := serial.OpenPort(tarmConfig(u.cfg))
	if err != nil {
		return errors.NewCommonEdgeX(errors.KindCommunicationError,
			fmt.Sprintf("open UART %s failed", u.cfg.Device), err)
	}
	u.handle = p
	return nil
}

func (u *UARTPort) Close() error {
	if u.handle == nil {
		return nil
	}
	h := u.handle
	u.handle = nil
	return h.Close()
}

func (u *UARTPort) Write(p []byte) (int, error) {
	if u.handle == nil {
		return 0, errors.NewCommonEdgeX(errors.KindIOError,
			fmt.Sprintf("UART %s is not open", u.cfg.Device), nil)
	}
	n, err := u.handle.Write(p)
	if err != nil {
		return n, errors.NewCommonEdgeX(errors.KindIOError, "UART write failed", err)
	}
	return n, nil
}

// Name 返回设备节点
func (u *UARTPort) Name() string {
	return u.cfg.Device
}
