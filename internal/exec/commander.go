// Package exec abstracts the external process calls the tunnel makes after
// bringing a tun device up: setting its MTU and, optionally, running a
// user-supplied addressing/routing script.
package exec

import (
	"os/exec"
	"strconv"
)

// Commander runs external commands. The indirection exists so the tun-up
// sequence in internal/engine's caller can be exercised in tests without
// shelling out.
type Commander interface {
	Run(name string, args ...string) error
	CombinedOutput(name string, args ...string) ([]byte, error)
}

// OSCommander runs commands via os/exec.
type OSCommander struct{}

func NewOSCommander() Commander { return &OSCommander{} }

func (c *OSCommander) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (c *OSCommander) CombinedOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// SetMTUAndUp brings iface up with the given MTU, the Linux equivalent of
// `ip link set <iface> mtu <mtu> up`.
func SetMTUAndUp(c Commander, iface string, mtu int) error {
	return c.Run("ip", "link", "set", iface, "mtu", strconv.Itoa(mtu), "up")
}

// RunUpScript invokes script with iface as its only argument, for operator
// addressing/routing that is out of this tunnel's scope.
func RunUpScript(c Commander, script, iface string) error {
	return c.Run(script, iface)
}
