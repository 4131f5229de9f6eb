package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

func writeUint8(w *bytes.Buffer, v uint8) { w.WriteByte(v) }

func readUint8(r *bytes.Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: truncated uint8", ErrDecode)
	}
	return b, nil
}

func writeUint16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated uint16", ErrDecode)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeFloat32(w *bytes.Buffer, f float32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
	w.Write(b[:])
}

func readFloat32(r *bytes.Reader) (float32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated float32", ErrDecode)
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[:])), nil
}

func writeHalf(w *bytes.Buffer, h GSHalf) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(h))
	w.Write(b[:])
}

func readHalf(r *bytes.Reader) (GSHalf, error) {
	v, err := readUint16(r)
	return GSHalf(v), err
}

func writeLoc1(w *bytes.Buffer, l Loc1) {
	writeFloat32(w, l.X)
	writeFloat32(w, l.Y)
	writeFloat32(w, l.Z)
}

func readLoc1(r *bytes.Reader) (Loc1, error) {
	var l Loc1
	var err error
	if l.X, err = readFloat32(r); err != nil {
		return l, err
	}
	if l.Y, err = readFloat32(r); err != nil {
		return l, err
	}
	if l.Z, err = readFloat32(r); err != nil {
		return l, err
	}
	return l, nil
}

func writeRot1(w *bytes.Buffer, rot Rot1) {
	writeLoc1(w, Loc1(rot))
}

func readRot1(r *bytes.Reader) (Rot1, error) {
	l, err := readLoc1(r)
	return Rot1(l), err
}

func writeLoc2(w *bytes.Buffer, l Loc2) {
	writeHalf(w, l.X)
	writeHalf(w, l.Y)
	writeHalf(w, l.Z)
	writeHalf(w, l.VX)
	writeHalf(w, l.VY)
	writeHalf(w, l.VZ)
}

func readLoc2(r *bytes.Reader) (Loc2, error) {
	var l Loc2
	var err error
	if l.X, err = readHalf(r); err != nil {
		return l, err
	}
	if l.Y, err = readHalf(r); err != nil {
		return l, err
	}
	if l.Z, err = readHalf(r); err != nil {
		return l, err
	}
	if l.VX, err = readHalf(r); err != nil {
		return l, err
	}
	if l.VY, err = readHalf(r); err != nil {
		return l, err
	}
	if l.VZ, err = readHalf(r); err != nil {
		return l, err
	}
	return l, nil
}

func writeRot2(w *bytes.Buffer, rot Rot2) {
	writeLoc2(w, Loc2(rot))
}

func readRot2(r *bytes.Reader) (Rot2, error) {
	l, err := readLoc2(r)
	return Rot2(l), err
}

func writeTransform1(w *bytes.Buffer, t Transform1) {
	writeLoc1(w, t.Loc)
	writeRot1(w, t.Rot)
}

func readTransform1(r *bytes.Reader) (Transform1, error) {
	var t Transform1
	var err error
	if t.Loc, err = readLoc1(r); err != nil {
		return t, err
	}
	if t.Rot, err = readRot1(r); err != nil {
		return t, err
	}
	return t, nil
}

func writeTextureUV1(w *bytes.Buffer, t TextureUV1) {
	writeFloat32(w, t.U)
	writeFloat32(w, t.V)
}

func readTextureUV1(r *bytes.Reader) (TextureUV1, error) {
	var t TextureUV1
	var err error
	if t.U, err = readFloat32(r); err != nil {
		return t, err
	}
	if t.V, err = readFloat32(r); err != nil {
		return t, err
	}
	return t, nil
}
