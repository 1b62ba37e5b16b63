package pulp

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/sosgather/internal/fsutil"
)

const (
	// ServerConfPath is where pulp keeps the mongo connection settings.
	ServerConfPath = "/etc/pulp/server.conf"

	defaultDBHost = "localhost"
	defaultDBPort = "27017"
)

// Whitespace includes \v and Unicode spaces so a value is the same token a
// whitespace split of the line would give.
const (
	space    = `[\s\v\x{85}\p{Z}]`
	nonSpace = `[^\s\v\x{85}\p{Z}]`
)

var (
	// seeds: host1:27017,host2:27017
	seedsLine    = regexp.MustCompile(`^` + space + `*seeds:` + space + `+(` + nonSpace + `+:` + nonSpace + `+)`)
	usernameLine = regexp.MustCompile(`^` + space + `*username:` + space + `+(` + nonSpace + `+)`)
	passwordLine = regexp.MustCompile(`^` + space + `*password:` + space + `+(` + nonSpace + `+)`)
)

// ConnectionParams is the mongo connection tuple used to build the client
// command lines. Every field is always set; credentials are empty when absent.
type ConnectionParams struct {
	Host         string
	Port         string
	UserFlag     string // "-u <user>" or ""
	PasswordFlag string // "-p <password>" or ""
}

// DefaultConnectionParams returns the tuple used when server.conf is missing
// or does not name a database.
func DefaultConnectionParams() ConnectionParams {
	return ConnectionParams{
		Host: defaultDBHost,
		Port: defaultDBPort,
	}
}

// ParseServerConf reads a pulp server.conf and extracts the connection tuple.
// Any read failure yields the defaults.
func ParseServerConf(path string, logger *slog.Logger) ConnectionParams {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if logger != nil {
			logger.Debug("server.conf not readable, using default connection", "path", path, "error", err)
		}
		return DefaultConnectionParams()
	}
	return ParseServerConfData(data)
}

// ParseServerConfData extracts the connection tuple from server.conf content.
//
// Only the first seed address is used, failover seeds are ignored. Every line
// is checked against all three keys, so the last occurrence of a key wins.
// Credentials are taken as a single whitespace-delimited token.
func ParseServerConfData(data []byte) ConnectionParams {
	params := DefaultConnectionParams()

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := seedsLine.FindStringSubmatch(line); m != nil {
			seed, _, _ := strings.Cut(m[1], ",")
			// "seeds: a,b:27017" has no port on the first seed
			if hostPort := strings.Split(seed, ":"); len(hostPort) > 1 {
				params.Host = hostPort[0]
				params.Port = hostPort[1]
			}
		}
		if m := usernameLine.FindStringSubmatch(line); m != nil {
			params.UserFlag = "-u " + m[1]
		}
		if m := passwordLine.FindStringSubmatch(line); m != nil {
			params.PasswordFlag = "-p " + m[1]
		}
	}

	return params
}
