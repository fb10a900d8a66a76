package state

import (
	"encoding/base64"
	"reflect"
)

var bytesType = reflect.TypeOf([]byte(nil))

// stringToBytesHook accepts base64 payloads, the encoding/json form of []byte.
func stringToBytesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	return base64.StdEncoding.DecodeString(data.(string))
}
