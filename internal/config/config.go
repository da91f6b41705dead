// Package config holds the tunnel's runtime configuration. There is no
// on-disk config file: the spec keeps no persistent state, so everything
// here is resolved from CLI flags (and, for the key, optional file
// indirection) at startup and held only in memory for the process
// lifetime.
package config

// Role distinguishes which side of the tunnel this process runs as.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Config is the fully resolved set of parameters an engine run needs.
type Config struct {
	// Role selects server or client behavior.
	Role Role

	// Key is the raw passphrase bytes the cipher derives its key from,
	// already resolved from either a literal --key value or an @path
	// file indirection.
	Key []byte

	// Bind is the server's listen address ("ip:port").
	Bind string

	// Remote is the client's target address ("ip:port").
	Remote string

	// TunName is the interface name to create or attach to.
	TunName string

	// UpScript, if non-empty, is invoked with the tun interface name as
	// its sole argument after the interface is brought up.
	UpScript string

	// NumSockets is the client socket pool's send-eligible socket count.
	NumSockets int

	// LogLevel is the zerolog level name ("trace", "debug", "info", ...).
	LogLevel string
}
