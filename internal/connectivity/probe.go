// Package connectivity reports whether a usable network path exists before
// any outbound weather request is issued.
package connectivity

// Transport is a network interface class.
type Transport string

const (
	TransportWiFi     Transport = "WIFI"
	TransportCellular Transport = "CELLULAR"
	TransportEthernet Transport = "ETHERNET"
	TransportVPN      Transport = "VPN"
	TransportLoopback Transport = "LOOPBACK"
)

// usableTransports are the transports that count as a usable network path.
var usableTransports = []Transport{TransportWiFi, TransportCellular, TransportEthernet}

// Network identifies the active network as reported by the platform.
type Network struct {
	Name string
}

// Capabilities is the capability set advertised by a network.
type Capabilities struct {
	Transports []Transport
}

// HasTransport reports whether the capability set advertises t.
func (c Capabilities) HasTransport(t Transport) bool {
	for _, have := range c.Transports {
		if have == t {
			return true
		}
	}
	return false
}

// NetworkInfo is the coarse network state exposed by older platforms.
type NetworkInfo struct {
	Connected  bool
	Connecting bool
}

// ConnectedOrConnecting reports whether the network is up or coming up.
func (i NetworkInfo) ConnectedOrConnecting() bool {
	return i.Connected || i.Connecting
}

// Inspector is the platform view of the network stack.
type Inspector interface {
	// ActiveNetwork returns the current default network, if any.
	ActiveNetwork() (Network, bool)

	// NetworkCapabilities returns the capability set of n.
	// ok is false when the query fails.
	NetworkCapabilities(n Network) (caps Capabilities, ok bool)

	// ActiveNetworkInfo returns the legacy network info, if any.
	ActiveNetworkInfo() (NetworkInfo, bool)
}

// Mode selects the strategy used to decide availability.
type Mode string

const (
	// ModeCapabilities inspects the transport capabilities of the active network.
	ModeCapabilities Mode = "capabilities"

	// ModeLegacy falls back to the coarse connected-or-connecting check for
	// platforms without capability queries.
	ModeLegacy Mode = "legacy"
)

// Probe answers whether the network is available.
type Probe struct {
	inspector Inspector
	mode      Mode
}

// NewProbe creates a probe using the given inspector and strategy.
// An unknown mode behaves as ModeCapabilities.
func NewProbe(inspector Inspector, mode Mode) *Probe {
	if mode != ModeLegacy {
		mode = ModeCapabilities
	}
	return &Probe{
		inspector: inspector,
		mode:      mode,
	}
}

// Mode returns the strategy in use.
func (p *Probe) Mode() Mode {
	return p.mode
}

// IsNetworkAvailable reports whether a WiFi, cellular or ethernet path is
// active. Absence of network is never an error, only false.
func (p *Probe) IsNetworkAvailable() bool {
	if p == nil || p.inspector == nil {
		return false
	}

	if p.mode == ModeLegacy {
		info, ok := p.inspector.ActiveNetworkInfo()
		return ok && info.ConnectedOrConnecting()
	}

	network, ok := p.inspector.ActiveNetwork()
	if !ok {
		return false
	}
	caps, ok := p.inspector.NetworkCapabilities(network)
	if !ok {
		return false
	}

	for _, t := range usableTransports {
		if caps.HasTransport(t) {
			return true
		}
	}
	return false
}

// AlwaysAvailable is a probe input that always reports a usable ethernet path.
// Useful for server deployments where the host network is assumed.
type AlwaysAvailable struct{}

// ActiveNetwork implements Inspector.
func (AlwaysAvailable) ActiveNetwork() (Network, bool) {
	return Network{Name: "host"}, true
}

// NetworkCapabilities implements Inspector.
func (AlwaysAvailable) NetworkCapabilities(Network) (Capabilities, bool) {
	return Capabilities{Transports: []Transport{TransportEthernet}}, true
}

// ActiveNetworkInfo implements Inspector.
func (AlwaysAvailable) ActiveNetworkInfo() (NetworkInfo, bool) {
	return NetworkInfo{Connected: true}, true
}
