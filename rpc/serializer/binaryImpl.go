package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/kolbkit/ckv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey        byte = 1 << 0
	hasPath       byte = 1 << 1
	hasPattern    byte = 1 << 2
	hasNotPattern byte = 1 << 3
	hasValue      byte = 1 << 4
	hasOk         byte = 1 << 5
	hasKeys       byte = 1 << 6
	hasErr        byte = 1 << 7
)

// second flags byte, since the fields above already exhaust the first
const (
	hasMeta byte = 1 << 0
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf []byte
	buf = append(buf, byte(msg.MsgType), 0, 0) // flags1, flags2 patched below

	var flags1, flags2 byte

	if msg.Key != "" {
		flags1 |= hasKey
		buf = appendString(buf, msg.Key)
	}
	if len(msg.Path) > 0 {
		flags1 |= hasPath
		buf = appendStringSlice(buf, msg.Path)
	}
	if msg.Pattern != "" {
		flags1 |= hasPattern
		buf = appendString(buf, msg.Pattern)
	}
	if msg.NotPattern != "" {
		flags1 |= hasNotPattern
		buf = appendString(buf, msg.NotPattern)
	}
	if msg.Value != nil {
		flags1 |= hasValue
		buf = appendBytes(buf, msg.Value)
	}
	if msg.Ok {
		flags1 |= hasOk
	}
	if len(msg.Keys) > 0 {
		flags1 |= hasKeys
		buf = appendStringSlice(buf, msg.Keys)
	}
	if msg.Err != "" {
		flags1 |= hasErr
		buf = appendString(buf, msg.Err)
	}
	if msg.Meta != nil {
		flags2 |= hasMeta
		buf = appendBytes(buf, msg.Meta)
	}

	buf[1] = flags1
	buf[2] = flags2
	return buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 3 {
		return fmt.Errorf("data too short for message header")
	}
	msg.MsgType = common.MessageType(data[0])
	flags1 := data[1]
	flags2 := data[2]
	pos := 3

	var err error

	if flags1&hasKey != 0 {
		if msg.Key, pos, err = readString(data, pos); err != nil {
			return fmt.Errorf("key: %w", err)
		}
	}
	if flags1&hasPath != 0 {
		if msg.Path, pos, err = readStringSlice(data, pos); err != nil {
			return fmt.Errorf("path: %w", err)
		}
	}
	if flags1&hasPattern != 0 {
		if msg.Pattern, pos, err = readString(data, pos); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	}
	if flags1&hasNotPattern != 0 {
		if msg.NotPattern, pos, err = readString(data, pos); err != nil {
			return fmt.Errorf("notPattern: %w", err)
		}
	}
	if flags1&hasValue != 0 {
		if msg.Value, pos, err = readBytes(data, pos); err != nil {
			return fmt.Errorf("value: %w", err)
		}
	} else {
		msg.Value = nil
	}
	msg.Ok = flags1&hasOk != 0
	if flags1&hasKeys != 0 {
		if msg.Keys, pos, err = readStringSlice(data, pos); err != nil {
			return fmt.Errorf("keys: %w", err)
		}
	} else {
		msg.Keys = nil
	}
	if flags1&hasErr != 0 {
		if msg.Err, pos, err = readString(data, pos); err != nil {
			return fmt.Errorf("err: %w", err)
		}
	} else {
		msg.Err = ""
	}
	if flags2&hasMeta != 0 {
		if msg.Meta, pos, err = readBytes(data, pos); err != nil {
			return fmt.Errorf("meta: %w", err)
		}
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Length-prefixed primitive helpers
// --------------------------------------------------------------------------

func appendBytes(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func appendStringSlice(buf []byte, ss []string) []byte {
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(ss)))
	buf = append(buf, countBuf[:]...)
	for _, s := range ss {
		buf = appendString(buf, s)
	}
	return buf
}

func readBytes(data []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, 0, fmt.Errorf("truncated payload")
	}
	out := make([]byte, n)
	copy(out, data[pos:pos+n])
	return out, pos + n, nil
}

func readString(data []byte, pos int) (string, int, error) {
	b, next, err := readBytes(data, pos)
	if err != nil {
		return "", 0, err
	}
	return string(b), next, nil
}

func readStringSlice(data []byte, pos int) ([]string, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("truncated count prefix")
	}
	count := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, next, err := readString(data, pos)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
		pos = next
	}
	return out, pos, nil
}
