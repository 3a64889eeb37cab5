// Package app 串联端口选择、打开、发送循环，并把每种结果转换为用户可读的提示。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/serial_tester_go/internal/charset"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/linjuya-lu/serial_tester_go/internal/mqttclient"
	"github.com/linjuya-lu/serial_tester_go/internal/selector"
	"github.com/linjuya-lu/serial_tester_go/internal/serial"
	"github.com/linjuya-lu/serial_tester_go/internal/transmit"
)

// 进程退出码
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Deps 是 Run 依赖的外部协作者
type Deps struct {
	List   serial.Lister
	Open   func(cfg config.Port, gpioRoot string) (serial.Port, error)
	In     io.Reader
	Out    io.Writer
	Logger logger.LoggingClient
	// ConnectMirror 为空时不镜像
	ConnectMirror func(cfg config.MQTT, port string) (transmit.Mirror, func(), error)
}

// DefaultDeps 使用真实串口、标准输入输出和 MQTT
func DefaultDeps(lc logger.LoggingClient) Deps {
	return Deps{
		List:          serial.Enumerate,
		Open:          serial.OpenPort,
		In:            os.Stdin,
		Out:           os.Stdout,
		Logger:        lc,
		ConnectMirror: ConnectMQTT,
	}
}

// ConnectMQTT 连接 Broker 并返回镜像及其释放函数
func ConnectMQTT(cfg config.MQTT, port string) (transmit.Mirror, func(), error) {
	c, err := mqttclient.NewClient(mqttclient.OptionsFromConfig(cfg), port)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { c.Disconnect(250) }, nil
}

// Run 执行一次完整的测试并返回退出码。
// 所有失败都在这里转换为提示信息；串口一旦打开，任何退出路径都只关闭一次。
func Run(ctx context.Context, cfg *config.TesterConfig, d Deps) int {
	lc := d.Logger

	sel, err := selector.New(d.List, d.In, d.Out, lc).Select(ctx, cfg.Port)
	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(d.Out, "\n已停止发送。")
		lc.Debugf("cancelled during port selection: %v", ctx.Err())
		return ExitOK
	case errors.Is(err, selector.ErrNoPortsFound):
		fmt.Fprintln(d.Out, "未发现可用串口！请检查连接。")
		fmt.Fprintln(d.Out, "提示：如果没有真实串口，可以安装虚拟串口软件进行测试。")
		return ExitOK
	case errors.Is(err, selector.ErrInvalidSelection):
		fmt.Fprintln(d.Out, "无效的选择。")
		lc.Debugf("selection rejected: %v", err)
		return ExitOK
	case err != nil:
		fmt.Fprintf(d.Out, "扫描串口失败: %v\n", err)
		return ExitFailure
	}

	portCfg := cfg.Port
	portCfg.Device = sel.Device
	portCfg.Baudrate = sel.Baudrate

	// 选择完成后再确认一次，取消后不再打开串口
	if ctx.Err() != nil {
		fmt.Fprintln(d.Out, "\n已停止发送。")
		return ExitOK
	}
	port, err := d.Open(portCfg, cfg.GPIORoot)
	if err != nil {
		fmt.Fprintf(d.Out, "打开串口失败: %v\n", err)
		lc.Errorf("open %s: %v", portCfg.Device, err)
		return ExitFailure
	}
	closed := false
	closePort := func() {
		if closed {
			return
		}
		closed = true
		if err := port.Close(); err != nil {
			lc.Errorf("close %s: %v", port.Name(), err)
			return
		}
		fmt.Fprintln(d.Out, "串口已关闭。")
	}
	defer closePort()

	fmt.Fprintf(d.Out, "\n成功打开串口 %s (波特率: %d)\n", portCfg.Device, portCfg.Baudrate)
	fmt.Fprintln(d.Out, "开始发送数据... (按 Ctrl+C 停止)")

	var src charset.Source
	if cfg.Seed != 0 {
		src = charset.NewSource(cfg.Seed)
	}
	loop := transmit.NewLoop(port, charset.NewGenerator(src), lc, transmit.Options{
		Interval:  cfg.Interval(),
		MinLength: cfg.MinLength,
		MaxLength: cfg.MaxLength,
	})

	if cfg.MQTT.Broker != "" && d.ConnectMirror != nil {
		mirror, release, err := d.ConnectMirror(cfg.MQTT, portCfg.Device)
		if err != nil {
			lc.Warnf("MQTT mirror disabled: %v", err)
		} else {
			defer release()
			loop.WithMirror(mirror)
			lc.Infof("mirroring transmitted lines to %s topic %s", cfg.MQTT.Broker, cfg.MQTT.Topic)
			if r, ok := mirror.(interface{ RunID() string }); ok {
				lc.Infof("mirror run ID %s", r.RunID())
			}
		}
	}

	stats, err := loop.Run(ctx)
	lc.Infof("sent %d lines, %d bytes to %s", stats.Lines, stats.Bytes, portCfg.Device)

	var werr *transmit.WriteError
	switch {
	case errors.As(err, &werr):
		fmt.Fprintf(d.Out, "发送失败: %v\n", werr)
		return ExitFailure
	case err != nil:
		fmt.Fprintf(d.Out, "发送中止: %v\n", err)
		return ExitFailure
	}
	fmt.Fprintln(d.Out, "\n已停止发送。")
	return ExitOK
}
