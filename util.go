package appchain

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FromUtf8 hex encodes the utf-8 bytes of str, stopping at the first NUL.
func FromUtf8(str string) string {
	var sb strings.Builder
	sb.Grow(len(str) * 2)

	for i := 0; i < len(str); i++ {
		if str[i] == 0 {
			break
		}
		sb.WriteString(fmt.Sprintf("%02x", str[i]))
	}

	return sb.String()
}

// ToUtf8 reverses FromUtf8. A leading 0x is accepted and trailing NUL padding
// is dropped.
func ToUtf8(hexStr string) (str string, err error) {
	data, err := hex.DecodeString(TrimHexPrefix(hexStr))
	if err != nil {
		err = errors.Wrapf(err, "failed to decode hex string '%s'", hexStr)
		return
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}

	return string(data), nil
}

func TrimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// CompactAbi returns the compact json encoding of an abi given either as raw
// json (string, []byte, json.RawMessage) or any value json can marshal.
func CompactAbi(abi any) (compact string, err error) {
	var raw []byte

	switch v := abi.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		buf := &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err = enc.Encode(v); err != nil {
			err = errors.Wrap(ErrInvalidAbi, err.Error())
			return
		}
		raw = bytes.TrimRight(buf.Bytes(), "\n")
	}

	buf := &bytes.Buffer{}
	if err = json.Compact(buf, raw); err != nil {
		err = errors.Wrap(ErrInvalidAbi, err.Error())
		return
	}

	return buf.String(), nil
}

type HexBytes []byte

func (h HexBytes) String() string {
	return "0x" + hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

func (h *HexBytes) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}

	decoded, err := hex.DecodeString(TrimHexPrefix(s))
	if err != nil {
		return errors.Wrapf(err, "invalid hex bytes '%s'", s)
	}

	*h = decoded
	return
}
