package domain

import (
	"fmt"
	"regexp"
)

// BuilderSecurity is the security type the Wi-Fi builder flow always emits
const BuilderSecurity = "WPA"

var wifiPattern = regexp.MustCompile(`^WIFI:T:([^;]*);S:([^;]*);P:([^;]*);;`)

// WiFi holds the fields of a Wi-Fi network QR payload
type WiFi struct {
	Security string
	SSID     string
	Password string
}

// NewBuilderWiFi returns the network produced by the Wi-Fi builder flow
func NewBuilderWiFi(ssid, password string) WiFi {
	return WiFi{Security: BuilderSecurity, SSID: ssid, Password: password}
}

// Payload returns the canonical "WIFI:T:..;S:..;P:..;;" string
func (w WiFi) Payload() string {
	return fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;;", w.Security, w.SSID, w.Password)
}

// IsOpen reports whether the network has no password
func (w WiFi) IsOpen() bool {
	return w.Password == ""
}

// ParseWiFi extracts Wi-Fi fields from a decoded QR payload.
// The second return value is false when data is not a Wi-Fi payload.
func ParseWiFi(data string) (WiFi, bool) {
	m := wifiPattern.FindStringSubmatch(data)
	if m == nil {
		return WiFi{}, false
	}
	return WiFi{Security: m[1], SSID: m[2], Password: m[3]}, true
}
