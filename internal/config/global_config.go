package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultBaudrate   = 9600
	DefaultTimeoutMs  = 1000
	DefaultIntervalMs = 30
	DefaultMinLength  = 10
	DefaultMaxLength  = 30
	DefaultLogLevel   = "INFO"
	DefaultGPIORoot   = "/sys/class/gpio"
	DefaultPortType   = "uart"
	// NoDEPin 表示未配置 DE/RE 控制引脚，GPIO 0 是合法引脚
	NoDEPin = -1

	// 每行至少覆盖五种字符类别
	minLineLength = 5
)

// Default 返回全部取默认值的配置
func Default() *TesterConfig {
	return &TesterConfig{
		Port: Port{
			Type:      DefaultPortType,
			DEPin:     NoDEPin,
			TimeoutMs: DefaultTimeoutMs,
		},
		IntervalMs: DefaultIntervalMs,
		MinLength:  DefaultMinLength,
		MaxLength:  DefaultMaxLength,
		LogLevel:   DefaultLogLevel,
		GPIORoot:   DefaultGPIORoot,
		MQTT: MQTT{
			ClientID:          "serial-tester",
			Topic:             "serial-tester/tx",
			KeepAliveSec:      60,
			ConnectTimeoutSec: 10,
		},
	}
}

// LoadConfig 从指定 YAML 文件加载配置，未出现的字段保留默认值。
// path 为空时直接返回默认配置。
func LoadConfig(path string) (*TesterConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// 1. 读取文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// 2. 反序列化，默认值作为底板
	wrapper := struct {
		SerialTester TesterConfig `yaml:"SerialTester"`
	}{SerialTester: *cfg}
	if err := yaml.UnmarshalStrict(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg = &wrapper.SerialTester

	// 3. 校验
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值是否合法，并规范化日志级别
func (c *TesterConfig) Validate() error {
	switch {
	case c.MinLength < minLineLength:
		return invalid("MinLength must be at least %d, got %d", minLineLength, c.MinLength)
	case c.MaxLength < c.MinLength:
		return invalid("MaxLength %d is less than MinLength %d", c.MaxLength, c.MinLength)
	case c.IntervalMs < 0:
		return invalid("IntervalMs must not be negative, got %d", c.IntervalMs)
	case c.Port.Baudrate < 0:
		return invalid("Baudrate must not be negative, got %d", c.Port.Baudrate)
	case c.Port.TimeoutMs < 0:
		return invalid("ReadTimeout must not be negative, got %d", c.Port.TimeoutMs)
	}
	switch c.Port.Type {
	case "uart":
	case "rs485":
		if c.Port.DEPin < 0 {
			return invalid("rs485 port requires a DEPin, got %d", c.Port.DEPin)
		}
	default:
		return invalid("unknown port type %q", c.Port.Type)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
		c.LogLevel = strings.ToUpper(c.LogLevel)
	default:
		return invalid("unknown log level %q", c.LogLevel)
	}
	if c.MQTT.Broker != "" {
		if c.MQTT.Topic == "" {
			return invalid("MQTT Topic is required when Broker is set")
		}
		if c.MQTT.ConnectTimeoutSec <= 0 {
			return invalid("MQTT ConnectTimeoutSec must be positive, got %d", c.MQTT.ConnectTimeoutSec)
		}
	}
	return nil
}

// Interval 返回两次发送之间的间隔
func (c *TesterConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ReadTimeout 返回打开串口时使用的读超时
func (p Port) ReadTimeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func invalid(format string, args ...interface{}) error {
	return errors.NewCommonEdgeX(errors.KindContractInvalid, fmt.Sprintf(format, args...), nil)
}
