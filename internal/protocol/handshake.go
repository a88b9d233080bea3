package protocol

import "encoding/json"

// Subscription is the JSON body of the subscribe handshake.
type Subscription struct {
	ID                 string `json:"id"`
	ClientName         string `json:"clientName"`
	ClientInternalName string `json:"clientInternalName"`
	ClientType         string `json:"clientType"`
	ClientDescription  string `json:"clientDescription"`
	ClientIdentifier   string `json:"clientIdentifier"`
	ClientOptions      string `json:"clientOptions"`
	ClientEncoding     int    `json:"clientEncoding"`
}

// DefaultEncoding is the clientEncoding value sent by the iOS remote.
const DefaultEncoding = 23117

// Packet wraps the subscription in a JM packet on the control address.
func (s Subscription) Packet() (JSONMessage, error) {
	if s.ID == "" {
		s.ID = "Subscribe"
	}
	body, err := json.Marshal(s)
	if err != nil {
		return JSONMessage{}, err
	}
	return JSONMessage{AP: ControlAddress, Body: string(body)}, nil
}

// Unsubscribe returns the JM packet that ends a subscription.
func Unsubscribe() JSONMessage {
	return JSONMessage{AP: ControlAddress, Body: `{"id":"Unsubscribe"}`}
}

// ListRequest returns the FR packet asking the device for the list stored
// under key, e.g. "presets/channel".
func ListRequest(key string) FileRequest {
	return FileRequest{AP: ControlAddress, Number: 1, Body: "List" + key + "\x00\x00"}
}
