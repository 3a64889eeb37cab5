package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/spf13/cobra"

	"github.com/linjuya-lu/serial_tester_go/internal/app"
	"github.com/linjuya-lu/serial_tester_go/internal/config"
	"github.com/linjuya-lu/serial_tester_go/internal/serial"
)

const serviceName = "serial-tester"

// runner 执行一次测试并返回退出码
type runner func(ctx context.Context, cfg *config.TesterConfig) int

// exitCode 把非零退出码透传给 Execute
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// Execute 运行根命令并返回进程退出码
func Execute() int {
	cmd := newRootCmd(serial.Enumerate, runTester)
	if err := cmd.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintln(os.Stderr, err)
		return app.ExitFailure
	}
	return app.ExitOK
}

func runTester(ctx context.Context, cfg *config.TesterConfig) int {
	lc := logger.NewClient(serviceName, cfg.LogLevel)
	return app.Run(ctx, cfg, app.DefaultDeps(lc))
}

type options struct {
	configPath string
	device     string
	portType   string
	baud       int
	dePin      int
	interval   int
	minLength  int
	maxLength  int
	seed       uint64
	logLevel   string
	broker     string
	topic      string
}

func newRootCmd(list serial.Lister, run runner) *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "持续向串口发送随机多字符集文本，验证链路是否稳定",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, &o)
			if err != nil {
				return err
			}
			// 监听 SIGINT/SIGTERM，转换为 ctx 取消
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if code := run(ctx, cfg); code != app.ExitOK {
				return exitCode(code)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML 配置文件路径")
	f.StringVar(&o.device, "port", "", "串口设备，例如 /dev/ttyUSB0；为空时交互选择")
	f.StringVar(&o.portType, "type", config.DefaultPortType, "端口类型 uart|rs485")
	f.IntVar(&o.baud, "baud", 0, "波特率；为空时交互输入 (默认 9600)")
	f.IntVar(&o.dePin, "de-pin", config.NoDEPin, "RS-485 DE/RE 控制 GPIO 编号")
	f.IntVar(&o.interval, "interval", config.DefaultIntervalMs, "两次发送之间的间隔（毫秒）")
	f.IntVar(&o.minLength, "min-length", config.DefaultMinLength, "随机行最小字符数 (>= 5)")
	f.IntVar(&o.maxLength, "max-length", config.DefaultMaxLength, "随机行最大字符数")
	f.Uint64Var(&o.seed, "seed", 0, "随机种子，非 0 时发送内容可复现")
	f.StringVar(&o.logLevel, "log-level", config.DefaultLogLevel, "日志级别 TRACE|DEBUG|INFO|WARN|ERROR")
	f.StringVar(&o.broker, "mqtt-broker", "", "镜像发送内容的 MQTT Broker，例如 tcp://localhost:1883")
	f.StringVar(&o.topic, "mqtt-topic", "", "镜像发送内容的 MQTT 主题")

	cmd.AddCommand(newListCmd(list))
	return cmd
}

// buildConfig 合并配置：命令行 > 配置文件 > 默认值
func buildConfig(cmd *cobra.Command, o *options) (*config.TesterConfig, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port.Device = o.device
	}
	if f.Changed("type") {
		cfg.Port.Type = o.portType
	}
	if f.Changed("baud") {
		cfg.Port.Baudrate = o.baud
	}
	if f.Changed("de-pin") {
		cfg.Port.DEPin = o.dePin
	}
	if f.Changed("interval") {
		cfg.IntervalMs = o.interval
	}
	if f.Changed("min-length") {
		cfg.MinLength = o.minLength
	}
	if f.Changed("max-length") {
		cfg.MaxLength = o.maxLength
	}
	if f.Changed("seed") {
		cfg.Seed = o.seed
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if f.Changed("mqtt-broker") {
		cfg.MQTT.Broker = o.broker
	}
	if f.Changed("mqtt-topic") {
		cfg.MQTT.Topic = o.topic
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
