package routing

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
)

// commandTimeout bounds every forwarding-table command.
const commandTimeout = 5 * time.Second

// IPRouteTable is the concrete ForwardingTable implementation this repo
// ships: it shells out to the `ip route` command set.
type IPRouteTable struct {
	Interface string
	// runCommand is overridable in tests; defaults to execCommand.
	runCommand func(ctx context.Context, name string, args ...string) (stdout string, exitErr error)
}

// NewIPRouteTable constructs an IPRouteTable bound to iface.
func NewIPRouteTable(iface string) *IPRouteTable {
	return &IPRouteTable{Interface: iface, runCommand: execCommand}
}

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %v: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// Read executes `ip route show table main` and parses the two host-route
// shapes: "D via H dev IFACE" and "D dev IFACE". A command failure
// (non-zero exit, timeout) yields an empty map; lines that are not a host
// route on the interface are skipped.
func (t *IPRouteTable) Read(ctx context.Context) map[string]string {
	out, err := t.runCommand(ctx, "ip", "route", "show", "table", "main")
	routes := map[string]string{}
	if err != nil {
		return routes
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, t.Interface) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		dst, ok := normalizeHostDest(fields[0])
		if !ok {
			continue
		}

		devIdx := indexOf(fields, "dev")
		if devIdx < 0 || devIdx+1 >= len(fields) || fields[devIdx+1] != t.Interface {
			continue
		}

		if viaIdx := indexOf(fields, "via"); viaIdx >= 0 && viaIdx+1 < len(fields) {
			routes[dst] = fields[viaIdx+1]
		} else {
			routes[dst] = "direct"
		}
	}
	return routes
}

// Replace issues `ip route replace <dst>/32 via <nextHop> dev <iface>`.
func (t *IPRouteTable) Replace(ctx context.Context, dst, nextHop string) error {
	_, err := t.runCommand(ctx, "ip", "route", "replace", dst+"/32", "via", nextHop, "dev", t.Interface)
	if err != nil {
		return fmt.Errorf("routing: replace %s via %s: %v: %w", dst, nextHop, err, sdwanerr.ErrForwardingCommandFailure)
	}
	return nil
}

// Delete issues `ip route del <dst>/32 dev <iface>`. A "no such process" /
// "route does not exist" style failure is treated as success: the
// destination is already gone, which is the desired end state.
func (t *IPRouteTable) Delete(ctx context.Context, dst string) error {
	out, err := t.runCommand(ctx, "ip", "route", "del", dst+"/32", "dev", t.Interface)
	if err == nil {
		return nil
	}
	if strings.Contains(out, "No such process") || strings.Contains(err.Error(), "No such process") {
		return nil
	}
	return fmt.Errorf("routing: delete %s: %v: %w", dst, err, sdwanerr.ErrForwardingCommandFailure)
}

func indexOf(fields []string, target string) int {
	for i, f := range fields {
		if f == target {
			return i
		}
	}
	return -1
}
