package service

import (
	"strings"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/mssola/useragent"
)

// ClassifyDevice derives the coarse device class from a User-Agent header.
// Unknown or empty agents count as desktop.
func ClassifyDevice(userAgent string) domain.DeviceClass {
	if userAgent == "" {
		return domain.DeviceDesktop
	}
	ua := useragent.New(userAgent)
	if ua.Mobile() || strings.Contains(userAgent, "Android") || strings.Contains(userAgent, "iPhone") {
		return domain.DeviceMobile
	}
	return domain.DeviceDesktop
}
