package models

import "strings"

type Role string

const (
	RoleDeveloper   Role = "Developer"
	RoleScrumMaster Role = "Scrum Master"
)

// ParseRole принимает любое написание "Scrum Master", остальное - Developer
func ParseRole(s string) Role {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))

	if normalized == "scrummaster" || normalized == "sm" {
		return RoleScrumMaster
	}

	return RoleDeveloper
}

type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceMobile  DeviceClass = "mobile"
)

// ParseDeviceClass возвращает false, если клиент не прислал понятное значение
func ParseDeviceClass(s string) (DeviceClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mobile", "phone", "tablet":
		return DeviceMobile, true
	case "desktop", "laptop":
		return DeviceDesktop, true
	default:
		return "", false
	}
}
