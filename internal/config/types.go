package config

// Port 描述待测试的串口设备
type Port struct {
	Device    string `yaml:"Device"`      // 串口设备节点，为空时交互选择
	Type      string `yaml:"Type"`        // uart/rs485
	Baudrate  int    `yaml:"Baudrate"`    // 波特率，0 表示交互输入
	DEPin     int    `yaml:"DEPin"`       // RS-485 DE/RE 控制 GPIO 编号，-1 表示未配置
	TimeoutMs int    `yaml:"ReadTimeout"` // 读超时（毫秒）
}

// MQTT 镜像发送内容的 Broker 配置，Broker 为空表示不启用
type MQTT struct {
	Broker            string `yaml:"Broker"`
	ClientID          string `yaml:"ClientID"`
	Topic             string `yaml:"Topic"`
	Username          string `yaml:"Username"`
	Password          string `yaml:"Password"`
	KeepAliveSec      int    `yaml:"KeepAliveSec"`
	ConnectTimeoutSec int    `yaml:"ConnectTimeoutSec"`
}

// TesterConfig 汇总了串口、发送节奏、随机行长度等配置
type TesterConfig struct {
	Port       Port   `yaml:"Port"`
	IntervalMs int    `yaml:"IntervalMs"`
	MinLength  int    `yaml:"MinLength"`
	MaxLength  int    `yaml:"MaxLength"`
	Seed       uint64 `yaml:"Seed"` // 0 表示随机种子
	LogLevel   string `yaml:"LogLevel"`
	GPIORoot   string `yaml:"GPIORoot"`
	MQTT       MQTT   `yaml:"MQTT"`
}
