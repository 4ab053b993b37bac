package gateway

import json "github.com/goccy/go-json"

// IdentifyProperties is Discord's required `d.properties` object on an
// IDENTIFY command.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties IdentifyProperties `json:"properties"`
}

type identifyFrame struct {
	Op int          `json:"op"`
	D  identifyData `json:"d"`
}

// EncodeIdentify builds the IDENTIFY command frame.
func EncodeIdentify(token string, intents int) ([]byte, error) {
	return json.Marshal(identifyFrame{
		Op: int(OpIdentify),
		D: identifyData{
			Token:   token,
			Intents: intents,
			Properties: IdentifyProperties{
				OS:      "linux",
				Browser: "rendezvous",
				Device:  "rendezvous",
			},
		},
	})
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

type resumeFrame struct {
	Op int        `json:"op"`
	D  resumeData `json:"d"`
}

// EncodeResume builds the RESUME command frame used to reattach an
// existing session after a reconnect.
func EncodeResume(token, sessionID string, seq int64) ([]byte, error) {
	return json.Marshal(resumeFrame{
		Op: int(OpResume),
		D: resumeData{
			Token:     token,
			SessionID: sessionID,
			Seq:       seq,
		},
	})
}

type heartbeatFrame struct {
	Op int    `json:"op"`
	D  *int64 `json:"d"`
}

// EncodeHeartbeat builds the HEARTBEAT command frame. lastSeq carries the
// last sequence number observed, or nil if none has been seen yet.
func EncodeHeartbeat(lastSeq *int64) ([]byte, error) {
	return json.Marshal(heartbeatFrame{
		Op: int(OpHeartbeat),
		D:  lastSeq,
	})
}
