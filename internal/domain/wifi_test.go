package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBuilderWiFi_Payload(t *testing.T) {
	w := NewBuilderWiFi("Home", "secret1")
	assert.Equal(t, "WIFI:T:WPA;S:Home;P:secret1;;", w.Payload())
}

func TestParseWiFi(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected WiFi
		matched  bool
		open     bool
	}{
		{
			name:     "wpa network",
			input:    "WIFI:T:WPA;S:Home;P:secret1;;",
			expected: WiFi{Security: "WPA", SSID: "Home", Password: "secret1"},
			matched:  true,
		},
		{
			name:     "open network",
			input:    "WIFI:T:WEP;S:Cafe;P:;;",
			expected: WiFi{Security: "WEP", SSID: "Cafe", Password: ""},
			matched:  true,
			open:     true,
		},
		{
			name:     "arbitrary security string",
			input:    "WIFI:T:SAE;S:Lab;P:pw;;",
			expected: WiFi{Security: "SAE", SSID: "Lab", Password: "pw"},
			matched:  true,
		},
		{
			name:    "plain text",
			input:   "hello world",
			matched: false,
		},
		{
			name:    "fields out of order",
			input:   "WIFI:S:Home;T:WPA;P:x;;",
			matched: false,
		},
		{
			name:    "missing terminator",
			input:   "WIFI:T:WPA;S:Home;P:x",
			matched: false,
		},
		{
			name:    "not at start",
			input:   "see WIFI:T:WPA;S:Home;P:x;;",
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := ParseWiFi(tt.input)
			assert.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.expected, w)
				assert.Equal(t, tt.open, w.IsOpen())
			}
		})
	}
}

func TestParseWiFi_RoundTrip(t *testing.T) {
	w, ok := ParseWiFi("WIFI:T:WEP;S:Cafe;P:;;")
	assert.True(t, ok)
	assert.Equal(t, "WIFI:T:WEP;S:Cafe;P:;;", w.Payload())
}
