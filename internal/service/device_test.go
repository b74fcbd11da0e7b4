package service_test

import (
	"testing"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		ua   string
		want domain.DeviceClass
	}{
		{iphoneUA, domain.DeviceMobile},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Mobile Safari/537.36", domain.DeviceMobile},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36", domain.DeviceDesktop},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15", domain.DeviceDesktop},
		{"", domain.DeviceDesktop},
	}
	for _, tt := range tests {
		if got := service.ClassifyDevice(tt.ua); got != tt.want {
			t.Errorf("ClassifyDevice(%q) = %s, want %s", tt.ua, got, tt.want)
		}
	}
}
