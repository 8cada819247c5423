package http

import (
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/config"
)

// clientICEServers converts the configured STUN/TURN entries into the
// shape browsers pass straight into RTCPeerConnection. TURN entries
// without complete credentials are filtered out: clients cannot use
// them and some browsers reject the whole list over one bad entry.
func clientICEServers(cfg *config.Config) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, server := range cfg.ICEServers {
		ice := webrtc.ICEServer{
			URLs:     server.URLs,
			Username: server.Username,
		}
		if server.Credential != "" {
			ice.Credential = server.Credential
		}
		if hasTURNURL(ice) && (strings.TrimSpace(server.Username) == "" || strings.TrimSpace(server.Credential) == "") {
			continue
		}
		out = append(out, ice)
	}
	return out
}

func hasTURNURL(server webrtc.ICEServer) bool {
	for _, raw := range server.URLs {
		url := strings.ToLower(strings.TrimSpace(raw))
		if strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:") {
			return true
		}
	}
	return false
}
