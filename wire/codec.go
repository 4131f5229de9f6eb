package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
)

// ErrEncodeFull is returned by Encoder.Encode when the frame does not fit
// in the remaining buffer. The buffer is left unchanged.
var ErrEncodeFull = errors.New("wire: encoder buffer full")

// DefaultBufferSize is the default Encoder capacity, sized to fit a single
// UDP-MTU datagram.
const DefaultBufferSize = 1500

// Encoder appends GSObject frames to a fixed-size buffer. It owns the
// buffer for its lifetime; callers must consume or copy Bytes() before the
// next Encode or Reset.
type Encoder struct {
	buf []byte
	n   int
}

// NewEncoder returns an Encoder with the given buffer capacity.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, size)}
}

// Reset empties the encoder without reallocating its buffer.
func (e *Encoder) Reset() { e.n = 0 }

// Bytes returns the populated region of the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf[:e.n] }

// Len reports how many bytes have been encoded so far.
func (e *Encoder) Len() int { return e.n }

// Encode appends one frame for obj. It returns ErrEncodeFull, leaving the
// buffer unchanged, if obj does not fit in the remaining capacity.
func (e *Encoder) Encode(obj GSObject) error {
	var body bytes.Buffer
	if err := encodeBody(&body, obj); err != nil {
		return err
	}

	tag := obj.Tag()
	var frame bytes.Buffer
	putUvarint(&frame, uint64(tag))
	if needsExplicitLength(tag) {
		putUvarint(&frame, uint64(body.Len()))
	}
	frame.Write(body.Bytes())

	if frame.Len() > len(e.buf)-e.n {
		return ErrEncodeFull
	}
	copy(e.buf[e.n:], frame.Bytes())
	e.n += frame.Len()
	return nil
}

// needsExplicitLength reports whether tag's frame carries a length varint.
// Tags 1..6 have schema-implicit body lengths; everything else is treated
// as an opaque, length-delimited UnknownObject.
func needsExplicitLength(tag Tag) bool {
	return tag < TagHead1 || tag > TagHeadIPD1
}

func encodeBody(w *bytes.Buffer, obj GSObject) error {
	switch o := obj.(type) {
	case *Head1:
		encodeHead1(w, o)
	case *Hand1:
		encodeHand1(w, o)
	case *Object1:
		encodeObject1(w, o)
	case *Mesh1:
		encodeMesh1(w, o)
	case *Hand2:
		encodeHand2(w, o)
	case *HeadIPD1:
		writeHalf(w, o.IPD)
	case *UnknownObject:
		w.Write(o.Body)
	default:
		return fmt.Errorf("%w: unknown GSObject implementation %T", ErrDecode, obj)
	}
	return nil
}

func encodeHead1(w *bytes.Buffer, o *Head1) {
	putUvarint(w, uint64(o.ObjID))
	writeUint16(w, truncateTime16(o.Time))
	writeLoc2(w, o.Loc)
	writeRot2(w, o.Rot)
	if o.HasIPD {
		writeUint8(w, 1)
		putUvarint(w, uint64(headIPDSubTag))
		putUvarint(w, 2)
		writeHalf(w, o.IPD)
	} else {
		writeUint8(w, 0)
	}
}

func encodeHand1(w *bytes.Buffer, o *Hand1) {
	putUvarint(w, uint64(o.ObjID))
	writeUint16(w, truncateTime16(o.Time))
	writeUint8(w, boolByte(o.Left))
	writeLoc2(w, o.Loc)
	writeRot2(w, o.Rot)
}

func encodeObject1(w *bytes.Buffer, o *Object1) {
	putUvarint(w, uint64(o.ObjID))
	writeUint16(w, truncateTime16(o.Time))
	writeLoc1(w, o.Loc)
	writeRot1(w, o.Rot)
	writeLoc1(w, o.Scale)
	if o.HasParent {
		writeUint8(w, 1)
		putUvarint(w, uint64(o.ParentID))
	} else {
		writeUint8(w, 0)
	}
}

func encodeMesh1(w *bytes.Buffer, o *Mesh1) {
	putUvarint(w, uint64(o.ObjID))
	putUvarint(w, uint64(len(o.Vertices)))
	for _, v := range o.Vertices {
		writeLoc1(w, v)
	}
	putUvarint(w, uint64(len(o.Normals)))
	for _, n := range o.Normals {
		writeLoc1(w, n)
	}
	putUvarint(w, uint64(len(o.Textures)))
	for _, t := range o.Textures {
		writeTextureUV1(w, t)
	}
	putUvarint(w, uint64(len(o.Triangles)))
	for _, idx := range o.Triangles {
		putUvarint(w, idx)
	}
}

func encodeHand2(w *bytes.Buffer, o *Hand2) {
	putUvarint(w, uint64(o.ObjID))
	writeUint16(w, truncateTime16(o.Time))
	writeUint8(w, boolByte(o.Left))
	writeLoc2(w, o.Loc)
	writeRot2(w, o.Rot)
	writeTransform1(w, o.Wrist)
	for _, t := range o.Thumb {
		writeTransform1(w, t)
	}
	for _, finger := range o.Fingers {
		for _, t := range finger {
			writeTransform1(w, t)
		}
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Decoder reads a sequence of GSObject frames from a borrowed byte slice.
type Decoder struct {
	r     *bytes.Reader
	clock clockwork.Clock
}

// NewDecoder returns a Decoder over b using the real wall clock for
// timestamp expansion.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(b), clock: clockwork.NewRealClock()}
}

// WithClock overrides the clock used to expand time16 values, for tests.
func (d *Decoder) WithClock(c clockwork.Clock) *Decoder {
	d.clock = c
	return d
}

// Decode returns the next object, or io.EOF once the buffer is exhausted.
// On malformed input it returns an error wrapping ErrDecode; the buffer
// position is left at the point of failure and should not be reused.
func (d *Decoder) Decode() (GSObject, error) {
	if d.r.Len() == 0 {
		return nil, io.EOF
	}

	tagv, err := readUvarint(d.r)
	if err != nil {
		return nil, err
	}
	tag := Tag(tagv)

	switch tag {
	case TagHead1:
		return decodeHead1(d.r, d.clock)
	case TagHand1:
		return decodeHand1(d.r, d.clock)
	case TagObject1:
		return decodeObject1(d.r, d.clock)
	case TagMesh1:
		return decodeMesh1(d.r)
	case TagHand2:
		return decodeHand2(d.r, d.clock)
	case TagHeadIPD1:
		return decodeHeadIPD1(d.r)
	default:
		if tag < TagUnknownLo {
			return nil, fmt.Errorf("%w: reserved tag %d", ErrDecode, tag)
		}
		length, err := readUvarint(d.r)
		if err != nil {
			return nil, err
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return nil, fmt.Errorf("%w: truncated unknown body (tag %d)", ErrDecode, tag)
		}
		return &UnknownObject{RawTag: tag, Body: body}, nil
	}
}

func decodeHead1(r *bytes.Reader, clock clockwork.Clock) (*Head1, error) {
	o := &Head1{}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.ObjID = ObjectId(id)

	t16, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	o.Time = expandTime16(t16, clock)

	if o.Loc, err = readLoc2(r); err != nil {
		return nil, err
	}
	if o.Rot, err = readRot2(r); err != nil {
		return nil, err
	}

	present, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if present != 0 {
		if _, err := readUvarint(r); err != nil { // sub-frame tag
			return nil, err
		}
		if _, err := readUvarint(r); err != nil { // sub-frame length
			return nil, err
		}
		ipd, err := readHalf(r)
		if err != nil {
			return nil, err
		}
		o.HasIPD = true
		o.IPD = ipd
	}
	return o, nil
}

func decodeHand1(r *bytes.Reader, clock clockwork.Clock) (*Hand1, error) {
	o := &Hand1{}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.ObjID = ObjectId(id)

	t16, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	o.Time = expandTime16(t16, clock)

	left, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	o.Left = left != 0

	if o.Loc, err = readLoc2(r); err != nil {
		return nil, err
	}
	if o.Rot, err = readRot2(r); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeObject1(r *bytes.Reader, clock clockwork.Clock) (*Object1, error) {
	o := &Object1{}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.ObjID = ObjectId(id)

	t16, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	o.Time = expandTime16(t16, clock)

	if o.Loc, err = readLoc1(r); err != nil {
		return nil, err
	}
	if o.Rot, err = readRot1(r); err != nil {
		return nil, err
	}
	if o.Scale, err = readLoc1(r); err != nil {
		return nil, err
	}

	hasParent, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if hasParent != 0 {
		pid, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		o.HasParent = true
		o.ParentID = ObjectId(pid)
	}
	return o, nil
}

func decodeMesh1(r *bytes.Reader) (*Mesh1, error) {
	o := &Mesh1{}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.ObjID = ObjectId(id)

	nv, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.Vertices = make([]Loc1, nv)
	for i := range o.Vertices {
		if o.Vertices[i], err = readLoc1(r); err != nil {
			return nil, err
		}
	}

	nn, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.Normals = make([]Loc1, nn)
	for i := range o.Normals {
		if o.Normals[i], err = readLoc1(r); err != nil {
			return nil, err
		}
	}

	nt, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.Textures = make([]TextureUV1, nt)
	for i := range o.Textures {
		if o.Textures[i], err = readTextureUV1(r); err != nil {
			return nil, err
		}
	}

	ntri, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.Triangles = make([]uint64, ntri)
	for i := range o.Triangles {
		if o.Triangles[i], err = readUvarint(r); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func decodeHand2(r *bytes.Reader, clock clockwork.Clock) (*Hand2, error) {
	o := &Hand2{}
	id, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	o.ObjID = ObjectId(id)

	t16, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	o.Time = expandTime16(t16, clock)

	left, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	o.Left = left != 0

	if o.Loc, err = readLoc2(r); err != nil {
		return nil, err
	}
	if o.Rot, err = readRot2(r); err != nil {
		return nil, err
	}
	if o.Wrist, err = readTransform1(r); err != nil {
		return nil, err
	}
	for i := range o.Thumb {
		if o.Thumb[i], err = readTransform1(r); err != nil {
			return nil, err
		}
	}
	for fi := range o.Fingers {
		for ji := range o.Fingers[fi] {
			if o.Fingers[fi][ji], err = readTransform1(r); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func decodeHeadIPD1(r *bytes.Reader) (*HeadIPD1, error) {
	h, err := readHalf(r)
	if err != nil {
		return nil, err
	}
	return &HeadIPD1{IPD: h}, nil
}
