package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Feed struct {
		Venue               string  `yaml:"venue"`
		Symbol              string  `yaml:"symbol"`
		DepthLimit          int     `yaml:"depth_limit"`
		KeepAliveSeconds    int     `yaml:"keepalive_seconds"`
		DialTimeoutSeconds  int     `yaml:"dial_timeout_seconds"`
		ReconnectBurst      int     `yaml:"reconnect_burst"`
		ReconnectsPerMinute float64 `yaml:"reconnects_per_minute"`
	} `yaml:"feed"`
	Venues struct {
		OKX struct {
			WSURL string `yaml:"ws_url"`
		} `yaml:"okx"`
		Bybit struct {
			WSURL string `yaml:"ws_url"`
		} `yaml:"bybit"`
		Deribit struct {
			WSURL string `yaml:"ws_url"`
		} `yaml:"deribit"`
	} `yaml:"venues"`
}

func defaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Feed.Venue = "OKX"
	c.Feed.Symbol = "BTC-USD"
	c.Feed.DepthLimit = 50
	c.Feed.KeepAliveSeconds = 20
	c.Feed.DialTimeoutSeconds = 10
	c.Feed.ReconnectBurst = 3
	c.Feed.ReconnectsPerMinute = 6
	c.Venues.OKX.WSURL = "wss://ws.okx.com:8443/ws/v5/public"
	c.Venues.Bybit.WSURL = "wss://stream.bybit.com/v5/public/linear"
	c.Venues.Deribit.WSURL = "wss://www.deribit.com/ws/api/v2"
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("DEPTHSIM_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("DEPTHSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEPTHSIM_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("DEPTHSIM_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DEPTHSIM_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("DEPTHSIM_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("DEPTHSIM_VENUE"); v != "" {
		c.Feed.Venue = v
	}
	if v := os.Getenv("DEPTHSIM_SYMBOL"); v != "" {
		c.Feed.Symbol = v
	}
	if v := os.Getenv("DEPTHSIM_DEPTH_LIMIT"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Feed.DepthLimit = n
		}
	}
	if v := os.Getenv("DEPTHSIM_KEEPALIVE_SECONDS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Feed.KeepAliveSeconds = n
		}
	}
	// WS endpoints can be pointed at a mock server or a testnet via env
	if v := os.Getenv("DEPTHSIM_OKX_WS_URL"); v != "" {
		c.Venues.OKX.WSURL = v
	}
	if v := os.Getenv("DEPTHSIM_BYBIT_WS_URL"); v != "" {
		c.Venues.Bybit.WSURL = v
	}
	if v := os.Getenv("DEPTHSIM_DERIBIT_WS_URL"); v != "" {
		c.Venues.Deribit.WSURL = v
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
