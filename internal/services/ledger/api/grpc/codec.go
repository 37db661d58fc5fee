package ledgergrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxStructInt is the largest integer a Struct number (a float64) holds
// exactly. Sequence numbers, versions and counters must stay within it.
const maxStructInt = 1 << 53

// toStruct converts a JSON-encodable value into a Struct message. Integers
// beyond maxStructInt are rejected rather than rounded.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	if err := checkIntegers(raw); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return msg, nil
}

// fromStruct decodes a Struct message into target.
func fromStruct(msg *structpb.Struct, target any) error {
	if msg == nil {
		msg = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

func checkIntegers(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return walkNumbers(doc)
}

func walkNumbers(v any) error {
	switch value := v.(type) {
	case map[string]any:
		for _, item := range value {
			if err := walkNumbers(item); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range value {
			if err := walkNumbers(item); err != nil {
				return err
			}
		}
	case json.Number:
		text := value.String()
		if strings.ContainsAny(text, ".eE") {
			return nil
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(text, "-"), 10, 64)
		if err != nil || n > maxStructInt {
			return fmt.Errorf("integer %s exceeds 2^53", text)
		}
	}
	return nil
}
