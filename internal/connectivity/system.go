package connectivity

import (
	"net"
	"strings"
)

// Interface is a host network interface snapshot.
type Interface struct {
	Name       string
	Up         bool
	Running    bool
	Loopback   bool
	HasAddress bool
}

// InterfaceLister returns the host network interfaces.
type InterfaceLister func() ([]Interface, error)

// transportPrefixes classifies interfaces by their kernel name.
// Checked in order; the first matching prefix wins.
var transportPrefixes = []struct {
	prefix    string
	transport Transport
}{
	{"wlan", TransportWiFi},
	{"wlp", TransportWiFi},
	{"wlx", TransportWiFi},
	{"wifi", TransportWiFi},
	{"ath", TransportWiFi},
	{"wwan", TransportCellular},
	{"rmnet", TransportCellular},
	{"ccmni", TransportCellular},
	{"ppp", TransportCellular},
	{"eth", TransportEthernet},
	{"en", TransportEthernet},
	{"em", TransportEthernet},
	{"tun", TransportVPN},
	{"tap", TransportVPN},
	{"utun", TransportVPN},
	{"wg", TransportVPN},
}

// ClassifyInterface returns the transport of the named interface, or "" when
// the name is not recognised.
func ClassifyInterface(name string) Transport {
	lower := strings.ToLower(name)
	if lower == "lo" || strings.HasPrefix(lower, "lo0") {
		return TransportLoopback
	}
	for _, p := range transportPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.transport
		}
	}
	return ""
}

// SystemInspector derives network state from the host's interfaces.
type SystemInspector struct {
	list InterfaceLister
}

// NewSystemInspector creates an inspector backed by the given lister.
// A nil lister uses HostInterfaces.
func NewSystemInspector(list InterfaceLister) *SystemInspector {
	if list == nil {
		list = HostInterfaces
	}
	return &SystemInspector{list: list}
}

// ActiveNetwork returns the first interface that is up, running, addressed
// and not loopback. Non-VPN interfaces are preferred.
func (s *SystemInspector) ActiveNetwork() (Network, bool) {
	ifaces, err := s.list()
	if err != nil {
		return Network{}, false
	}

	var fallback *Interface
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Loopback || !iface.Up || !iface.Running || !iface.HasAddress {
			continue
		}
		if ClassifyInterface(iface.Name) == TransportVPN {
			if fallback == nil {
				fallback = &ifaces[i]
			}
			continue
		}
		return Network{Name: iface.Name}, true
	}

	if fallback != nil {
		return Network{Name: fallback.Name}, true
	}
	return Network{}, false
}

// NetworkCapabilities returns the transport of n. The query fails when the
// interface has disappeared since ActiveNetwork was called.
func (s *SystemInspector) NetworkCapabilities(n Network) (Capabilities, bool) {
	ifaces, err := s.list()
	if err != nil {
		return Capabilities{}, false
	}

	for _, iface := range ifaces {
		if iface.Name != n.Name {
			continue
		}
		var caps Capabilities
		if t := ClassifyInterface(iface.Name); t != "" {
			caps.Transports = append(caps.Transports, t)
		}
		return caps, true
	}
	return Capabilities{}, false
}

// ActiveNetworkInfo reports the coarse state across all non-loopback
// interfaces: connected when one is running with an address, connecting
// when one is administratively up but not yet usable.
func (s *SystemInspector) ActiveNetworkInfo() (NetworkInfo, bool) {
	ifaces, err := s.list()
	if err != nil {
		return NetworkInfo{}, false
	}

	var info NetworkInfo
	seen := false
	for _, iface := range ifaces {
		if iface.Loopback {
			continue
		}
		seen = true
		switch {
		case iface.Up && iface.Running && iface.HasAddress:
			info.Connected = true
		case iface.Up:
			info.Connecting = true
		}
	}
	if !seen {
		return NetworkInfo{}, false
	}
	return info, true
}

// HostInterfaces lists the interfaces of the running host.
func HostInterfaces() ([]Interface, error) {
	netIfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(netIfaces))
	for _, ni := range netIfaces {
		iface := Interface{
			Name:     ni.Name,
			Up:       ni.Flags&net.FlagUp != 0,
			Running:  ni.Flags&net.FlagRunning != 0,
			Loopback: ni.Flags&net.FlagLoopback != 0,
		}
		if addrs, err := ni.Addrs(); err == nil {
			iface.HasAddress = len(addrs) > 0
		}
		out = append(out, iface)
	}
	return out, nil
}
