package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/tarm/serial"
)

// RS485Port 实现了 RS-485 半双工物理层的发送
// - Open/Close 管理串口和 GPIO
// - Write 每次写入前拉高 DE/RE，数据发完后拉低

type RS485Port struct {
	cfg      config.Port  // 端口配置
	gpioRoot string       // sysfs GPIO 根目录
	port     *serial.Port // 串口句柄
	gpioFD   *os.File     // DE/RE 控制 GPIO 节点
	settle   time.Duration
}

// 构造 RS485Port 实例
func NewRS485Port(cfg config.Port, gpioRoot string) Port {
	if gpioRoot == "" {
		gpioRoot = config.DefaultGPIORoot
	}
	return &RS485Port{cfg: cfg, gpioRoot: gpioRoot, settle: 5 * time.Millisecond}
}

// Open 导出 GPIO 并打开串口
func (r *RS485Port) Open() error {
	// 导出 GPIO
	if err := exportGPIO(r.gpioRoot, r.cfg.DEPin); err != nil {
		return gpioErr(fmt.Sprintf("export GPIO %d failed", r.cfg.DEPin), err)
	}
	time.Sleep(r.settle)
	if err := setGPIODirection(r.gpioRoot, r.cfg.DEPin, "out"); err != nil {
		return gpioErr(fmt.Sprintf("set GPIO %d direction", r.cfg.DEPin), err)
	}
	f, err := openGPIOValue(r.gpioRoot, r.cfg.DEPin)
	if err != nil {
		return gpioErr(fmt.Sprintf("open GPIO %d value", r.cfg.DEPin), err)
	}
	// 默认低电平 (接收)
	if err := writeLevel(f, "0"); err != nil {
		f.Close()
		return gpioErr(fmt.Sprintf("init GPIO %d low", r.cfg.DEPin), err)
	}
	r.gpioFD = f

	// 打开串口
	p, err := serial.OpenPort(tarmConfig(r.cfg))
	if err != nil {
		r.gpioFD.Close()
		r.gpioFD = nil
		return errors.NewCommonEdgeX(errors.KindCommunicationError,
			fmt.Sprintf("open RS-485 %s failed", r.cfg.Device), err)
	}
	r.port = p
	return nil
}

// Close 关闭串口和 GPIO
func (r *RS485Port) Close() error {
	var firstErr error
	if r.port != nil {
		if err := r.port.Close(); err != nil {
			firstErr = err
		}
		r.port = nil
	}
	if r.gpioFD != nil {
		if err := r.gpioFD.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.gpioFD = nil
	}
	return firstErr
}

// Write 切到发送 → 写数据 → 等待发完 → 切回接收
func (r *RS485Port) Write(p []byte) (int, error) {
	if r.port == nil || r.gpioFD == nil {
		return 0, errors.NewCommonEdgeX(errors.KindIOError,
			fmt.Sprintf("RS-485 %s is not open", r.cfg.Device), nil)
	}
	if err := writeLevel(r.gpioFD, "1"); err != nil {
		return 0, errors.NewCommonEdgeX(errors.KindIOError, "GPIO DE high failed", err)
	}
	time.Sleep(r.settle)

	n, err := r.port.Write(p)
	if err != nil {
		// 出错切回接收
		_ = writeLevel(r.gpioFD, "0")
		return n, errors.NewCommonEdgeX(errors.KindIOError, "RS-485 write failed", err)
	}
	time.Sleep(drainTime(n, r.cfg.Baudrate))

	if err := writeLevel(r.gpioFD, "0"); err != nil {
		return n, errors.NewCommonEdgeX(errors.KindIOError, "GPIO DE low failed", err)
	}
	return n, nil
}

// Name 返回设备节点
func (r *RS485Port) Name() string {
	return r.cfg.Device
}

// drainTime 估算 n 字节在线路上发完的时间 (10 bits/byte)
func drainTime(n, baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Duration(n*10) * time.Second / time.Duration(baud)
}

func gpioErr(msg string, err error) error {
	return errors.NewCommonEdgeX(errors.KindCommunicationError, msg, err)
}

// -------- GPIO 辅助函数 --------
func exportGPIO(root string, pin int) error {
	f, err := os.OpenFile(filepath.Join(root, "export"), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _ = f.WriteString(strconv.Itoa(pin)) // 若已导出则忽略错误
	return nil
}

func setGPIODirection(root string, pin int, dir string) error {
	path := filepath.Join(root, fmt.Sprintf("gpio%d", pin), "direction")
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(dir)
	return err
}

func openGPIOValue(root string, pin int) (*os.File, error) {
	path := filepath.Join(root, fmt.Sprintf("gpio%d", pin), "value")
	return os.OpenFile(path, os.O_RDWR, 0)
}

// writeLevel 总是写在偏移 0，sysfs 与普通文件行为一致
func writeLevel(f *os.File, level string) error {
	_, err := f.WriteAt([]byte(level), 0)
	return err
}
