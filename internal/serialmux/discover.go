package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// arduinoVendorIDs lists the USB vendor IDs of Arduino boards and the usual
// clones (official, org-era boards, CH340, FTDI).
var arduinoVendorIDs = map[uint16]bool{
	0x2341: true,
	0x2A03: true,
	0x1A86: true,
	0x0403: true,
}

// portNameKeywords are matched case-insensitively against both the device
// path and its description when no vendor ID matches.
var portNameKeywords = []string{
	"Arduino", "ttyACM", "ttyUSB", "usbmodem", "usbserial",
}

// PortInfo describes one visible serial port with whatever USB metadata the
// platform exposes.
type PortInfo struct {
	Path        string
	Description string
	VendorID    uint16
	IsUSB       bool
}

// String formats the port for log output, mirroring the detail shown when
// discovery fails and the operator needs to pick a port by hand.
func (p PortInfo) String() string {
	desc := p.Description
	if desc == "" {
		desc = "?"
	}
	if p.IsUSB {
		return fmt.Sprintf("%s: %s (VID %04x)", p.Path, desc, p.VendorID)
	}
	return fmt.Sprintf("%s: %s", p.Path, desc)
}

// ListPorts enumerates the visible serial ports. Platforms without detailed
// USB enumeration fall back to bare device paths, which still allows keyword
// and sole-port matching.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, listErr := serial.GetPortsList()
		if listErr != nil {
			return nil, fmt.Errorf("failed to enumerate serial ports: %w", listErr)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Path: name})
		}
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{
			Path:        d.Name,
			Description: d.Product,
			IsUSB:       d.IsUSB,
		}
		if d.IsUSB {
			if vid, err := strconv.ParseUint(d.VID, 16, 16); err == nil {
				info.VendorID = uint16(vid)
			}
		}
		ports = append(ports, info)
	}
	return ports, nil
}

// DiscoverPort picks the port most likely to be the roller sensor:
// first any port with a known Arduino vendor ID, then any whose path or
// description matches a keyword, finally the sole port if exactly one
// exists. Returns false when no candidate stands out.
func DiscoverPort(ports []PortInfo) (string, bool) {
	for _, p := range ports {
		if arduinoVendorIDs[p.VendorID] {
			return p.Path, true
		}
	}

	for _, p := range ports {
		path := strings.ToLower(p.Path)
		desc := strings.ToLower(p.Description)
		for _, keyword := range portNameKeywords {
			k := strings.ToLower(keyword)
			if strings.Contains(path, k) || strings.Contains(desc, k) {
				return p.Path, true
			}
		}
	}

	if len(ports) == 1 {
		return ports[0].Path, true
	}
	return "", false
}
