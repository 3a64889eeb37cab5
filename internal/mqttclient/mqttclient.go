// internal/mqttclient/mqttclient.go
package mqttclient

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/linjuya-lu/serial_tester_go/internal/config"
)

// ClientOptions 配置 MQTT 客户端行为
// Broker: tcp://host:port
// ClientID: 客户端标识
// Username/Password: 可选认证
// KeepAlive: 心跳间隔
// ConnectTimeout: 连接超时
// Qos/Retain: 发布参数
type ClientOptions struct {
	Broker         string
	ClientID       string
	Topic          string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	Qos            byte
	Retain         bool
}

// OptionsFromConfig 把 YAML 中的 MQTT 段转换为 ClientOptions
func OptionsFromConfig(c config.MQTT) ClientOptions {
	return ClientOptions{
		Broker:         c.Broker,
		ClientID:       c.ClientID,
		Topic:          c.Topic,
		Username:       c.Username,
		Password:       c.Password,
		KeepAlive:      time.Duration(c.KeepAliveSec) * time.Second,
		ConnectTimeout: time.Duration(c.ConnectTimeoutSec) * time.Second,
	}
}

// LineMessage 是镜像到 MQTT 的单行发送记录
type LineMessage struct {
	ApiVersion    string `json:"apiVersion"`
	RunID         string `json:"runID"`
	CorrelationID string `json:"correlationID"`
	Port          string `json:"port"`
	Seq           int    `json:"seq"`
	Timestamp     int64  `json:"timestamp"` // Unix 纳秒
	Data          string `json:"data"`      // 未编码的原始文本，不含换行
	ContentType   string `json:"contentType"`
}

// Client 封装 Paho MQTT 客户端，把每一行发送内容镜像到固定主题
type Client struct {
	inner mqtt.Client
	opts  ClientOptions
	runID string
	port  string
	now   func() time.Time
}

// NewClient 创建一个新的 MQTT 客户端并连接到 Broker
func NewClient(opts ClientOptions, port string) (*Client, error) {
	p := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true)
	if opts.Username != "" {
		p.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		p.SetPassword(opts.Password)
	}
	inner := mqtt.NewClient(p)
	tok := inner.Connect()
	if !tok.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout after %s", opts.ConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newClient(inner, opts, port), nil
}

func newClient(inner mqtt.Client, opts ClientOptions, port string) *Client {
	return &Client{
		inner: inner,
		opts:  opts,
		runID: uuid.NewString(),
		port:  port,
		now:   time.Now,
	}
}

// RunID 标识本次运行，每条消息都携带；用于日志关联和测试
func (c *Client) RunID() string {
	return c.runID
}

// Message 组装第 seq 行的消息
func (c *Client) Message(seq int, line string) LineMessage {
	return LineMessage{
		ApiVersion:    "v3",
		RunID:         c.runID,
		CorrelationID: uuid.NewString(),
		Port:          c.port,
		Seq:           seq,
		Timestamp:     c.now().UnixNano(),
		Data:          line,
		ContentType:   "application/json",
	}
}

// PublishLine 发布一行发送记录并等待完成
func (c *Client) PublishLine(seq int, line string) error {
	body, err := json.Marshal(c.Message(seq, line))
	if err != nil {
		return fmt.Errorf("marshal line %d: %w", seq, err)
	}
	tok := c.inner.Publish(c.opts.Topic, c.opts.Qos, c.opts.Retain, body)
	tok.Wait()
	return tok.Error()
}

// Disconnect 断开与 Broker 的连接
func (c *Client) Disconnect(quiesce uint) {
	c.inner.Disconnect(quiesce)
}
