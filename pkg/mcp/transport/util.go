package transport

import "encoding/json"

func marshalForSend(v any) ([]byte, error) {
	return json.Marshal(v)
}
