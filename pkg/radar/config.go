package radar

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/spf13/viper"

	fx "github.com/robotalks/mmwave.go/pkg/framework"
	"github.com/robotalks/mmwave.go/pkg/radar/dispatch"
	"github.com/robotalks/mmwave.go/pkg/radar/msgs"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
	"github.com/robotalks/mmwave.go/pkg/radar/transport"
)

// DefaultDeviceID is used when the machine id can't be read.
const DefaultDeviceID = "mr60bha2"

// Config provides the options to run the radar engine.
type Config struct {
	DeviceID      string        `mapstructure:"device_id"`
	SerialPort    string        `mapstructure:"serial_port"`
	Baud          int           `mapstructure:"baud"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	StaleTimeout  time.Duration `mapstructure:"stale_timeout"`
	MaxPayloadLen int           `mapstructure:"max_payload_len"`
	// TargetPolicy is "slots" or "text".
	TargetPolicy string `mapstructure:"target_policy"`
	// Measurements is a comma separated list of published measurements.
	// Empty publishes all.
	Measurements string `mapstructure:"measurements"`
	// MQTTURL e.g. mqtt://host:port/topic-prefix. Empty disables MQTT.
	MQTTURL string `mapstructure:"mqtt_url"`
	// MetricsAddr is the listen address of /metrics. Empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// ConfigFile is merged on top of defaults and environment.
	ConfigFile string `mapstructure:"-"`
}

// ConfigError reports an invalid option.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

var defaultConfig = Config{
	SerialPort:    "/dev/ttyUSB0",
	Baud:          115200,
	ReadTimeout:   transport.DefaultSerialReadTimeout,
	PollInterval:  DefaultPollInterval,
	StaleTimeout:  time.Second,
	MaxPayloadLen: 1024,
	TargetPolicy:  dispatch.TargetPolicySlots.String(),
}

func init() {
	defaultConfig.DeviceID = machineID()
	if val := os.Getenv("MMWAVE_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
	if val := os.Getenv("MMWAVE_SERIAL_PORT"); val != "" {
		defaultConfig.SerialPort = val
	}
	if val := os.Getenv("MMWAVE_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val := os.Getenv("MMWAVE_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("MMWAVE_METRICS_ADDR"); val != "" {
		defaultConfig.MetricsAddr = val
	}
}

func machineID() string {
	id, err := machineid.ID()
	if err != nil || id == "" {
		return DefaultDeviceID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "Config file (YAML, TOML or JSON).")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID.")
	flag.StringVar(&defaultConfig.SerialPort, "port", defaultConfig.SerialPort, "Serial port of the radar.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Polling interval.")
	flag.DurationVar(&defaultConfig.StaleTimeout, "stale", defaultConfig.StaleTimeout, "Discard a partial frame after this idle time, 0 to disable.")
	flag.IntVar(&defaultConfig.MaxPayloadLen, "max-payload", defaultConfig.MaxPayloadLen, "Reject frames with longer payload, 0 to disable.")
	flag.StringVar(&defaultConfig.TargetPolicy, "targets", defaultConfig.TargetPolicy, "Point cloud publishing: slots or text.")
	flag.StringVar(&defaultConfig.Measurements, "measurements", defaultConfig.Measurements, "Comma separated measurements to publish, all if empty.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Listen address for metrics.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations. When a config
// file is specified, it's merged and flags set on the command line are
// applied again on top of it.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if conf.ConfigFile == "" {
		return &conf, nil
	}
	if err := conf.LoadFile(conf.ConfigFile); err != nil {
		return nil, err
	}
	if flag.Parsed() {
		flag.Visit(func(f *flag.Flag) {
			if g, ok := f.Value.(flag.Getter); ok {
				conf.setFlag(f.Name, g.Get())
			}
		})
	}
	return &conf, nil
}

// MustNewConfig creates a Config and fails on error.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

func (c *Config) setFlag(name string, val interface{}) {
	switch name {
	case "id":
		c.DeviceID = val.(string)
	case "port":
		c.SerialPort = val.(string)
	case "baud":
		c.Baud = val.(int)
	case "poll":
		c.PollInterval = val.(time.Duration)
	case "stale":
		c.StaleTimeout = val.(time.Duration)
	case "max-payload":
		c.MaxPayloadLen = val.(int)
	case "targets":
		c.TargetPolicy = val.(string)
	case "measurements":
		c.Measurements = val.(string)
	case "mqtt":
		c.MQTTURL = val.(string)
	case "metrics":
		c.MetricsAddr = val.(string)
	}
}

// LoadFile merges options from a config file. Options absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Validate checks all options.
func (c *Config) Validate() error {
	var errs fx.AggregatedError
	invalid := func(field string, format string, args ...interface{}) {
		errs.Add(&ConfigError{Field: field, Err: fmt.Errorf(format, args...)})
	}
	if c.DeviceID == "" || strings.ContainsAny(c.DeviceID, "/+#") {
		invalid("device_id", "%q", c.DeviceID)
	}
	if c.Baud <= 0 {
		invalid("baud", "%d", c.Baud)
	}
	if c.PollInterval <= 0 {
		invalid("poll_interval", "%v", c.PollInterval)
	}
	if c.StaleTimeout < 0 {
		invalid("stale_timeout", "%v", c.StaleTimeout)
	}
	if c.MaxPayloadLen < 0 || c.MaxPayloadLen > 0xffff {
		invalid("max_payload_len", "%d", c.MaxPayloadLen)
	}
	if _, err := dispatch.ParseTargetPolicy(c.TargetPolicy); err != nil {
		errs.Add(&ConfigError{Field: "target_policy", Err: err})
	}
	if _, err := sink.ParseMeasurements(c.Measurements); err != nil {
		errs.Add(&ConfigError{Field: "measurements", Err: err})
	}
	return errs.Aggregate()
}

// Policy returns the parsed target policy, slots when invalid.
func (c *Config) Policy() dispatch.TargetPolicy {
	p, _ := dispatch.ParseTargetPolicy(c.TargetPolicy)
	return p
}

// MeasurementList returns the measurements to publish.
func (c *Config) MeasurementList() []sink.Measurement {
	names, err := sink.ParseMeasurements(c.Measurements)
	if err != nil || len(names) == 0 {
		return sink.Measurements()
	}
	return names
}

// Meta describes the device for the MQTT meta topic.
func (c *Config) Meta() msgs.DeviceMeta {
	meta := msgs.DeviceMeta{
		Device:       c.DeviceID,
		Online:       true,
		Port:         c.SerialPort,
		TargetPolicy: c.Policy().String(),
	}
	for _, m := range c.MeasurementList() {
		meta.Measurements = append(meta.Measurements, string(m))
	}
	return meta
}

// OpenSerial opens the configured serial port.
func (c *Config) OpenSerial() (*transport.Stream, error) {
	if c.SerialPort == "" {
		return nil, &ConfigError{Field: "serial_port", Err: fmt.Errorf("required")}
	}
	return transport.OpenSerial(transport.SerialConfig{
		Name:        c.SerialPort,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
}

// NewDriver creates a Driver reading src and publishing into sinks.
func (c *Config) NewDriver(src transport.ByteSource, sinks *sink.Set) (*Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d := NewDriver(src, dispatch.New(sinks, c.Policy()))
	d.Reassembler.MaxPayloadLen = c.MaxPayloadLen
	d.StaleTimeout = c.StaleTimeout
	d.PollInterval = c.PollInterval
	return d, nil
}

// MustNewDriver creates a Driver and fails on error.
func (c *Config) MustNewDriver(src transport.ByteSource, sinks *sink.Set) *Driver {
	d, err := c.NewDriver(src, sinks)
	if err != nil {
		log.Fatalln(err)
	}
	return d
}

// Dump prints the effective configuration.
func (c *Config) Dump(w io.Writer) {
	fmt.Fprintf(w, "MR60BHA2 radar:\n")
	fmt.Fprintf(w, "  device id:        %s\n", c.DeviceID)
	fmt.Fprintf(w, "  serial port:      %s @ %d\n", c.SerialPort, c.Baud)
	fmt.Fprintf(w, "  poll interval:    %v\n", c.PollInterval)
	fmt.Fprintf(w, "  stale timeout:    %v\n", c.StaleTimeout)
	fmt.Fprintf(w, "  max payload:      %d\n", c.MaxPayloadLen)
	fmt.Fprintf(w, "  target policy:    %s\n", c.Policy())
	if c.MQTTURL != "" {
		fmt.Fprintf(w, "  mqtt:             %s\n", c.MQTTURL)
	}
	if c.MetricsAddr != "" {
		fmt.Fprintf(w, "  metrics:          %s\n", c.MetricsAddr)
	}
	names := c.MeasurementList()
	fmt.Fprintf(w, "  measurements (%d):\n", len(names))
	for _, m := range names {
		fmt.Fprintf(w, "    %s (%s)\n", m, m.Kind())
	}
}
