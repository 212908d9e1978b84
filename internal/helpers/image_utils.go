package helpers

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeBase64Image decodes a base64-encoded image payload. A data URL
// prefix ("data:image/jpeg;base64,...") is stripped when present, and
// whitespace inside the payload is tolerated.
func DecodeBase64Image(data string) ([]byte, error) {
	if idx := strings.Index(data, "base64,"); idx >= 0 {
		data = data[idx+len("base64,"):]
	}
	data = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, data)

	if data == "" {
		return nil, fmt.Errorf("empty image data")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return decoded, nil
}

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}
