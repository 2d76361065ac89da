// Package hostsfile implements the addn_hosts side effect described in
// spec.md §6 and grounded on
// original_source/dcmanager/manager/subcloud_manager.py's
// _create_addn_hosts_dc: a dnsmasq "additional hosts" file, one
// `<management_start_ip> <region_name>` line per registered subcloud,
// atomically replaced and followed by a SIGHUP to dnsmasq so it re-reads
// the file without a full restart.
package hostsfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/subcloudregistry"
)

// Writer regenerates the dnsmasq additional-hosts file from the current
// subcloud registry.
type Writer struct {
	path   string
	logger logr.Logger
}

// NewWriter builds a Writer targeting path (the original's
// "dnsmasq.addn_hosts_dc" under its config directory).
func NewWriter(path string, logger logr.Logger) *Writer {
	return &Writer{path: path, logger: logger.WithName("hostsfile")}
}

// Regenerate rewrites the hosts file from subclouds, replacing it
// atomically via rename-over and signalling dnsmasq only when the
// content actually changed.
func (w *Writer) Regenerate(subclouds []subcloudregistry.Subcloud) error {
	content := render(subclouds)

	existing, err := os.ReadFile(w.path)
	if err == nil && bytes.Equal(existing, content) {
		return nil
	}

	tmp := w.path + ".temp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("hostsfile: write temp file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("hostsfile: rename into place: %w", err)
	}

	if err := signalDnsmasq(); err != nil {
		w.logger.Error(err, "failed to signal dnsmasq after hosts file update")
	}
	return nil
}

func render(subclouds []subcloudregistry.Subcloud) []byte {
	sorted := make([]subcloudregistry.Subcloud, len(subclouds))
	copy(sorted, subclouds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RegionName < sorted[j].RegionName })

	var buf bytes.Buffer
	for _, s := range sorted {
		fmt.Fprintf(&buf, "%s %s\n", s.ManagementStartIP, s.RegionName)
	}
	if len(sorted) == 0 {
		// An empty file makes dnsmasq log a parse error; write a single
		// space instead, matching the original's empty-subclouds case.
		buf.WriteString(" ")
	}
	return buf.Bytes()
}

// signalDnsmasq sends SIGHUP to every process named "dnsmasq", the Go
// equivalent of the original's `pkill -HUP dnsmasq`.
func signalDnsmasq() error {
	pids, err := findProcessesByName("dnsmasq")
	if err != nil {
		return err
	}
	var firstErr error
	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGHUP); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// findProcessesByName scans /proc for processes whose comm matches name,
// avoiding a dependency on pkill being installed in the container image.
func findProcessesByName(name string) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("hostsfile: read /proc: %w", err)
	}
	var pids []int
	for _, e := range entries {
		pid, err := parsePID(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(comm), []byte(name)) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func parsePID(s string) (int, error) {
	var pid int
	if _, err := fmt.Sscanf(s, "%d", &pid); err != nil {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("not a pid: %s", s)
	}
	return pid, nil
}
