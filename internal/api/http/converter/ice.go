package converter

import (
	"strings"

	"github.com/immxrtalbeast/medsignal/internal/config"
	"github.com/pion/webrtc/v3"
)

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// ICEServersFromConfig groups STUN urls into one entry and TURN urls into a
// second, credentialed entry. Blank urls are skipped.
func ICEServersFromConfig(cfg config.WebRTCConfig) *ICEServersResponse {
	servers := make([]webrtc.ICEServer, 0, 2)

	if stun := nonEmpty(cfg.STUNServers); len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if turn := nonEmpty(cfg.TURNServers); len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       cfg.TURNUsername,
			Credential:     cfg.TURNPassword,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}

	return &ICEServersResponse{ICEServers: servers}
}

func nonEmpty(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
