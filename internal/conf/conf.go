// Package conf loads and validates the YAML configuration for the two
// binaries, in the teacher's own idiom: tagged structs, a setDefaults pass,
// and a validate pass that accumulates every error before returning one.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Log configures the process-wide logger.
type Log struct {
	Level string `yaml:"level"`
}

func (l *Log) setDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l *Log) validate() []error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return []error{fmt.Errorf("log.level must be one of debug|info|warn|error, got %q", l.Level)}
	}
}

// Server is the quoteserver configuration.
type Server struct {
	Log        Log    `yaml:"log"`
	TCPAddr    string `yaml:"tcp_addr"`
	UDPAddr    string `yaml:"udp_addr"`
	TickerFile string `yaml:"ticker_file"`
}

func (c *Server) setDefaults() {
	c.Log.setDefaults()
	if c.TCPAddr == "" {
		c.TCPAddr = "127.0.0.1:7878"
	}
	if c.UDPAddr == "" {
		c.UDPAddr = "127.0.0.1:55000"
	}
}

func (c *Server) validate() error {
	var allErrors []error
	allErrors = append(allErrors, c.Log.validate()...)
	if c.TCPAddr == "" {
		allErrors = append(allErrors, fmt.Errorf("tcp_addr is required"))
	}
	if c.UDPAddr == "" {
		allErrors = append(allErrors, fmt.Errorf("udp_addr is required"))
	}
	if c.TickerFile == "" {
		allErrors = append(allErrors, fmt.Errorf("ticker_file is required"))
	}
	return writeErr(allErrors)
}

// LoadServerFromFile reads and validates a Server config.
func LoadServerFromFile(path string) (*Server, error) {
	var c Server
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return &c, err
	}
	return &c, nil
}

// Client is the quoteclient configuration.
type Client struct {
	Log             Log           `yaml:"log"`
	ServerAddr      string        `yaml:"server_addr"`
	LocalUDPAddr    string        `yaml:"local_udp_addr"`
	TickerFile      string        `yaml:"ticker_file"`
	ReconnectPeriod time.Duration `yaml:"reconnect_period"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

func (c *Client) setDefaults() {
	c.Log.setDefaults()
	if c.LocalUDPAddr == "" {
		c.LocalUDPAddr = "127.0.0.1:55500"
	}
	if c.ReconnectPeriod == 0 {
		c.ReconnectPeriod = 10 * time.Second
	}
	if c.PingPeriod == 0 {
		c.PingPeriod = 2 * time.Second
	}
}

func (c *Client) validate() error {
	var allErrors []error
	allErrors = append(allErrors, c.Log.validate()...)
	if c.ServerAddr == "" {
		allErrors = append(allErrors, fmt.Errorf("server_addr is required"))
	}
	if c.TickerFile == "" {
		allErrors = append(allErrors, fmt.Errorf("ticker_file is required"))
	}
	return writeErr(allErrors)
}

// LoadClientFromFile reads and validates a Client config.
func LoadClientFromFile(path string) (*Client, error) {
	var c Client
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return &c, err
	}
	return &c, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func writeErr(allErrors []error) error {
	if len(allErrors) > 0 {
		var messages []string
		for _, err := range allErrors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}
