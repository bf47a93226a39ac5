package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// ClientAgent is the part of a User-Agent header worth putting in a request log
type ClientAgent struct {
	DeviceType string
	OS         string
	Browser    string
	IsBot      bool
}

// ParseUserAgent classifies a User-Agent header. An empty header yields "unknown" fields.
func ParseUserAgent(header string) ClientAgent {
	if header == "" {
		return ClientAgent{DeviceType: "unknown", OS: "unknown", Browser: "unknown"}
	}

	parser := ua.New(header)

	agent := ClientAgent{
		DeviceType: "desktop",
		OS:         "unknown",
		Browser:    "unknown",
		IsBot:      parser.Bot(),
	}

	if parser.Mobile() {
		agent.DeviceType = "mobile"
		if isTablet(header) {
			agent.DeviceType = "tablet"
		}
	}

	if osInfo := parser.OSInfo(); osInfo.Name != "" {
		agent.OS = strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
	}

	if name, version := parser.Browser(); name != "" {
		agent.Browser = strings.TrimSpace(name + " " + version)
	}

	return agent
}

func isTablet(header string) bool {
	lower := strings.ToLower(header)
	for _, marker := range []string{"ipad", "tablet", "kindle", "sm-t", "nexus 7", "nexus 10"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
