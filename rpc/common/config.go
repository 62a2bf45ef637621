package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration
// --------------------------------------------------------------------------

// ServerConfig holds the settings for one RPC server process: the
// transport it listens on and the backend that the facade underneath it
// is built from.
type ServerConfig struct {
	// Transport settings
	Endpoint          string
	TimeoutSecond     int
	ReadBufferSize    int
	WriteBufferSize   int
	TCPNoDelay        bool
	TCPKeepAliveSec   int
	TCPLingerSec      int
	MaxWorkersPerConn int

	// Facade/backend settings
	Backend                  string // "memmap" or "sqlite"
	DataDir                  string
	CacheSize                int
	WriteIntervalMillisecond int64
	UseJSONValueCodec        bool

	LogLevel string
}

// String returns a formatted representation of the configuration, used for
// startup logging.
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Backend")
	addField("Type", c.Backend)
	addField("Data Dir", c.DataDir)
	addField("Cache Size", strconv.Itoa(c.CacheSize))
	addField("Write Interval", fmt.Sprintf("%d ms", c.WriteIntervalMillisecond))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
	ReadBufferSize         int
	WriteBufferSize        int
	TCPNoDelay             bool
	TCPKeepAliveSec        int
	TCPLingerSec           int
}

func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
