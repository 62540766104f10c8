package library

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lookbusy1344/aluvm/core"
)

// Serialize writes the strict wire form of the library: the isae, deps,
// code and data segments in order, each length-prefixed, multi-byte
// integers little-endian. This byte layout is the preimage of the
// library id.
func (l *Lib) Serialize(w io.Writer) error {
	if len(l.ISAE) > IsaSegMaxCount {
		return fmt.Errorf("too many ISA extension names: %d", len(l.ISAE))
	}
	if err := writeByte(w, uint8(len(l.ISAE))); err != nil {
		return err
	}
	for _, name := range l.ISAE {
		if !ValidIsaName(name) {
			return fmt.Errorf("invalid ISA extension name %q", name)
		}
		if err := writeByte(w, uint8(len(name))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, name); err != nil {
			return err
		}
	}

	if len(l.Libs) > LibsSegMaxCount {
		return fmt.Errorf("%w: %d entries", ErrTooManyLibs, len(l.Libs))
	}
	if err := writeByte(w, uint8(len(l.Libs))); err != nil {
		return err
	}
	for _, id := range l.Libs {
		if _, err := w.Write(id[:]); err != nil {
			return err
		}
	}

	// The u16 length prefix bounds the code segment at 65535 bytes.
	if len(l.Code) > 0xFFFF {
		return fmt.Errorf("%w: %d bytes", ErrCodeOverflow, len(l.Code))
	}
	var u16buf [2]byte
	binary.LittleEndian.PutUint16(u16buf[:], uint16(len(l.Code)))
	if _, err := w.Write(u16buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(l.Code); err != nil {
		return err
	}

	if len(l.Data) > DataSegMaxLen {
		return fmt.Errorf("%w: %d bytes", ErrDataOverflow, len(l.Data))
	}
	dataLen := uint32(len(l.Data))
	if _, err := w.Write([]byte{byte(dataLen), byte(dataLen >> 8), byte(dataLen >> 16)}); err != nil {
		return err
	}
	_, err := w.Write(l.Data)
	return err
}

// SerializedLen returns the byte length of the wire form.
func (l *Lib) SerializedLen() int {
	n := 1
	for _, name := range l.ISAE {
		n += 1 + len(name)
	}
	n += 1 + 32*len(l.Libs)
	n += 2 + len(l.Code)
	n += 3 + len(l.Data)
	return n
}

// Deserialize reads the strict wire form produced by Serialize,
// validating counts, name charsets and dependency ordering.
func Deserialize(r io.Reader) (*Lib, error) {
	br := bufio.NewReader(r)

	isaCount, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading isae segment: %w", err)
	}
	if int(isaCount) > IsaSegMaxCount {
		return nil, fmt.Errorf("too many ISA extension names: %d", isaCount)
	}
	isae := make([]string, 0, isaCount)
	for i := 0; i < int(isaCount); i++ {
		nameLen, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading isae segment: %w", err)
		}
		if int(nameLen) > IsaNameMaxLen {
			return nil, fmt.Errorf("ISA extension name too long: %d bytes", nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, fmt.Errorf("reading isae segment: %w", err)
		}
		if !ValidIsaName(string(name)) {
			return nil, fmt.Errorf("invalid ISA extension name %q", name)
		}
		isae = append(isae, string(name))
	}

	depCount, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading deps segment: %w", err)
	}
	libs := make([]core.LibID, 0, depCount)
	for i := 0; i < int(depCount); i++ {
		var id core.LibID
		if _, err := io.ReadFull(br, id[:]); err != nil {
			return nil, fmt.Errorf("reading deps segment: %w", err)
		}
		if i > 0 && bytes.Compare(libs[i-1][:], id[:]) >= 0 {
			return nil, fmt.Errorf("dependency ids are not in ascending order")
		}
		libs = append(libs, id)
	}

	var u16buf [2]byte
	if _, err := io.ReadFull(br, u16buf[:]); err != nil {
		return nil, fmt.Errorf("reading code segment: %w", err)
	}
	code := make([]byte, binary.LittleEndian.Uint16(u16buf[:]))
	if _, err := io.ReadFull(br, code); err != nil {
		return nil, fmt.Errorf("reading code segment: %w", err)
	}

	var u24buf [3]byte
	if _, err := io.ReadFull(br, u24buf[:]); err != nil {
		return nil, fmt.Errorf("reading data segment: %w", err)
	}
	dataLen := uint32(u24buf[0]) | uint32(u24buf[1])<<8 | uint32(u24buf[2])<<16
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("reading data segment: %w", err)
	}

	return New(isae, libs, code, data)
}

func writeByte(w io.Writer, b uint8) error {
	_, err := w.Write([]byte{b})
	return err
}
