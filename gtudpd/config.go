package gtudpd

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxConcurrentResponses bounds the goroutines answering requests.
	DefaultMaxConcurrentResponses = 500
	// DefaultMaxRequestSize is the largest datagram read.
	DefaultMaxRequestSize = 64
	// DefaultMaxRequestsPerIP is the number of requests allowed per window.
	DefaultMaxRequestsPerIP = 100
	// DefaultRateLimitWindow is the rate limiting window.
	DefaultRateLimitWindow = 1 * time.Second
	// DefaultResponseTimeout bounds the time spent answering one request.
	DefaultResponseTimeout = 1 * time.Second
	// DefaultReadTimeout is how often the read loop checks for shutdown.
	DefaultReadTimeout = 10 * time.Millisecond
)

// LeapFileName is the file in the config directory holding a leap second
// table.
const LeapFileName = "leapsecs"

// Config is read from a DJB-style config directory: one file per setting,
// and one empty file per allowed client network.
type Config struct {
	DefaultPort            string
	ConfigDir              string
	MaxConcurrentResponses int
	MaxRequestSize         int
	MaxRequestsPerIP       int
	RateLimitWindow        time.Duration
	ResponseTimeout        time.Duration
	ReadTimeout            time.Duration
}

func (c *Config) withDefaults() {
	if c.MaxConcurrentResponses <= 0 {
		c.MaxConcurrentResponses = DefaultMaxConcurrentResponses
	}
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = DefaultMaxRequestSize
	}
	if c.MaxRequestsPerIP <= 0 {
		c.MaxRequestsPerIP = DefaultMaxRequestsPerIP
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
}

// inConfigDir returns the path of name inside the config directory, or
// false if it would escape it.
func (c *Config) inConfigDir(name string) (string, bool) {
	dir, err := filepath.Abs(c.ConfigDir)
	if err != nil {
		return "", false
	}
	p, err := filepath.Abs(filepath.Join(c.ConfigDir, name))
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(p, dir+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

func (c *Config) exists(name string) bool {
	p, ok := c.inConfigDir(name)
	if !ok {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// parsePort accepts "4014" or ":4014" and returns ":4014".
func parsePort(s string) (string, bool) {
	num := strings.TrimPrefix(s, ":")
	if num == "" || strings.TrimLeft(num, "0123456789") != "" {
		return "", false
	}
	port, err := strconv.Atoi(num)
	if err != nil || port <= 0 || port > 65535 {
		return "", false
	}
	return ":" + num, true
}

// Port returns the listening address from the "port" file, or DefaultPort.
func (c *Config) Port() string {
	if c.ConfigDir == "" {
		return c.DefaultPort
	}
	p, ok := c.inConfigDir("port")
	if !ok {
		return c.DefaultPort
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return c.DefaultPort
	}
	if port, ok := parsePort(strings.TrimSpace(string(data))); ok {
		return port
	}
	return c.DefaultPort
}

// LeapFile returns the path of the leap second table in the config
// directory, if there is one.
func (c *Config) LeapFile() (string, bool) {
	if c.ConfigDir == "" || !c.exists(LeapFileName) {
		return "", false
	}
	return c.inConfigDir(LeapFileName)
}

// isNetworkName reports whether name could be an IP address or prefix.
func isNetworkName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

// ClientOK reports whether ip may use the server. With no config
// directory everyone may. Otherwise a file named "0", the client's /8,
// /16 or /24 IPv4 prefix, or its full address must exist.
func (c *Config) ClientOK(ip net.IP) bool {
	if c.ConfigDir == "" {
		return true
	}
	allowed := func(name string) bool {
		return isNetworkName(name) && c.exists(name)
	}
	if allowed("0") {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		prefix := strconv.Itoa(int(ip4[0]))
		for i := 1; i < 4; i++ {
			if allowed(prefix) {
				return true
			}
			prefix += "." + strconv.Itoa(int(ip4[i]))
		}
	}
	return allowed(ip.String())
}
