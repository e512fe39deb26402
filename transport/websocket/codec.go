package websocket

import (
	"bytes"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Subprotocols a client may request. Without one, frames are JSON text.
const (
	SubprotocolJSON    = "pong.v1.json"
	SubprotocolMsgpack = "pong.v1.msgpack"
)

// codec turns frames into websocket messages and back
type codec struct {
	name      string
	frameType int
	marshal   func(v interface{}) ([]byte, error)
	unmarshal func(data []byte, v interface{}) error
}

var jsonCodec = &codec{
	name:      SubprotocolJSON,
	frameType: websocket.TextMessage,
	marshal:   json.Marshal,
	unmarshal: json.Unmarshal,
}

// msgpackCodec reuses the json tags so both encodings carry the same keys.
var msgpackCodec = &codec{
	name:      SubprotocolMsgpack,
	frameType: websocket.BinaryMessage,
	marshal: func(v interface{}) ([]byte, error) {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	},
	unmarshal: func(data []byte, v interface{}) error {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	},
}

// codecFor picks the codec of the negotiated subprotocol.
func codecFor(subprotocol string) *codec {
	if subprotocol == SubprotocolMsgpack {
		return msgpackCodec
	}
	return jsonCodec
}
