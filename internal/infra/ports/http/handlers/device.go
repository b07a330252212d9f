package handlers

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

// DetectDevice определяет класс устройства при handshake:
// явный ?device=, затем Client Hints, затем User-Agent
func DetectDevice(r *http.Request) models.DeviceClass {
	if device, ok := models.ParseDeviceClass(r.URL.Query().Get("device")); ok {
		return device
	}

	if hint := strings.TrimSpace(r.Header.Get("Sec-CH-UA-Mobile")); hint != "" {
		if hint == "?1" {
			return models.DeviceMobile
		}
		return models.DeviceDesktop
	}

	if ua := r.UserAgent(); ua != "" && useragent.New(ua).Mobile() {
		return models.DeviceMobile
	}

	return models.DeviceDesktop
}
