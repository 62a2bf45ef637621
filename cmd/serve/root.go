package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/kolbkit/ckv/cmd/util"
	"github.com/kolbkit/ckv/internal/config"
	"github.com/kolbkit/ckv/rpc/common"
	"github.com/kolbkit/ckv/rpc/serializer"
	"github.com/kolbkit/ckv/rpc/server"
	"github.com/kolbkit/ckv/rpc/transport"
	"github.com/kolbkit/ckv/rpc/transport/http"
	"github.com/kolbkit/ckv/rpc/transport/tcp"
	"github.com/kolbkit/ckv/rpc/transport/unix"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the ckv server",
		Long:    `Start the ckv server with the specified configuration. The configuration can be set via ckv.yaml, environment variables (CKV_<flag>) or command line flags.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	key := "endpoint"
	ServeCmd.Flags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:8080, /tmp/ckv.sock)"))

	key = "backend"
	ServeCmd.Flags().String(key, "memmap", cmdUtil.WrapString("Backend to store data in (memmap, sqlite)"))

	key = "data-dir"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Path used by the sqlite backend to store its database file (\":memory:\" if empty)"))

	key = "cache-size"
	ServeCmd.Flags().Int(key, 1000, cmdUtil.WrapString("Number of clean entries the cache-and-buffer layer keeps before evicting"))

	key = "write-interval-ms"
	ServeCmd.Flags().Int64(key, 100, cmdUtil.WrapString("How often the write buffer is flushed to the backend, in milliseconds (0 flushes every write immediately)"))

	key = "json-codec"
	ServeCmd.Flags().Bool(key, false, cmdUtil.WrapString("Encode values with JSON instead of gob before they reach the backend"))

	key = "log-level"
	ServeCmd.Flags().String(key, "info", cmdUtil.WrapString("Level at which logs will be output (debug, info, warn, error)"))

	key = "transport-read-buffer"
	ServeCmd.Flags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-write-buffer"
	ServeCmd.Flags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	ServeCmd.Flags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The linger time for the transport (in seconds, only for tcp)"))

	key = "max-workers-per-conn"
	ServeCmd.Flags().Int(key, 8, cmdUtil.WrapString("Maximum number of requests handled concurrently per connection (tcp/unix transports)"))
}

// processConfig binds the command's flags to viper and fills
// serveCmdConfig from the result.
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Backend = viper.GetString("backend")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.CacheSize = viper.GetInt("cache-size")
	serveCmdConfig.WriteIntervalMillisecond = viper.GetInt64("write-interval-ms")
	serveCmdConfig.UseJSONValueCodec = viper.GetBool("json-codec")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.ReadBufferSize = viper.GetInt("transport-read-buffer") * 1024
	serveCmdConfig.WriteBufferSize = viper.GetInt("transport-write-buffer") * 1024
	serveCmdConfig.TCPNoDelay = viper.GetBool("transport-tcp-nodelay")
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("transport-tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("transport-tcp-linger")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("max-workers-per-conn")

	if serveCmdConfig.Backend != "memmap" && serveCmdConfig.Backend != "sqlite" {
		return fmt.Errorf("invalid backend %q (expected memmap or sqlite)", serveCmdConfig.Backend)
	}

	return nil
}

// run starts the ckv server.
func run(_ *cobra.Command, _ []string) error {
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	return serv.Serve()
}

// initConfig reads ckv.yaml, .env files and environment variables.
func initConfig() {
	_ = config.Load("ckv.yaml")
}
