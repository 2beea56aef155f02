package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultEncodings is the order in which encodings are attempted.
var DefaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// errInvalidUTF8 reports bytes that are not valid UTF-8.
var errInvalidUTF8 = errors.New("invalid utf-8 byte sequence")

type decodeFunc func([]byte) (string, error)

// decoderFor returns the decoder for a named encoding.
func decoderFor(name string) (decodeFunc, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return decodeUTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmapDecoder(charmap.ISO8859_1), nil
	case "cp1252", "windows-1252":
		return charmapDecoder(charmap.Windows1252), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w at byte %d", errInvalidUTF8, firstInvalid(data))
	}
	return string(data), nil
}

func charmapDecoder(cm *charmap.Charmap) decodeFunc {
	return func(data []byte) (string, error) {
		return decodeWith(cm, data)
	}
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
