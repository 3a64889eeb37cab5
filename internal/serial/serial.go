// internal/serial/serial.go

package serial

import (
	"fmt"

	"github.com/linjuya-lu/serial_tester_go/internal/config"
)

// Port 是整个 serial 包对外暴露的通用串口接口。
// 测试工具只发送不接收，因此只保留写方向。
type Port interface {
	Open() error
	// Close 可重复调用，只有第一次真正关闭底层设备
	Close() error
	Write(p []byte) (int, error)
	Name() string
}

// NewPort 根据配置创建对应的串口实现（UART / RS-485）
func NewPort(cfg config.Port, gpioRoot string) (Port, error) {
	switch cfg.Type {
	case "", "uart":
		return NewUARTPort(cfg), nil
	case "rs485":
		return NewRS485Port(cfg, gpioRoot), nil
	default:
		return nil, fmt.Errorf("unknown port type %s", cfg.Type)
	}
}

// OpenPort 创建并打开串口，失败时不返回任何句柄
func OpenPort(cfg config.Port, gpioRoot string) (Port, error) {
	p, err := NewPort(cfg, gpioRoot)
	if err != nil {
		return nil, err
	}
	if err := p.Open(); err != nil {
		return nil, err
	}
	return p, nil
}
