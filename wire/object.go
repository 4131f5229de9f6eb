// Package wire implements the tagged-union binary codec and object model
// for synchronized game-state objects: head and hand poses, generic
// objects, meshes, and opaque unknown-tagged payloads.
package wire

import "errors"

// ObjectId identifies an object for routing. It is not a sequence number;
// two messages are the same object iff their ids are equal.
type ObjectId uint64

// Tag is the wire tag of a GSObject variant.
type Tag uint64

const (
	TagHead1     Tag = 1
	TagHand1     Tag = 2
	TagObject1   Tag = 3
	TagMesh1     Tag = 4
	TagHand2     Tag = 5
	TagHeadIPD1  Tag = 6
	TagUnknownLo Tag = 0x20 // lowest tag treated as UnknownObject when unrecognized
)

// headIPDSubTag is the tag written for the optional IPD sub-frame nested
// inside a Head1 body. It is a separate constant from TagHand1, although
// both are 2: the nested frame shares a small tag space with standalone GSObjects but
// is scoped to the Head1 body, not the top-level tag registry. See
// DESIGN.md for this source-documented oddity.
const headIPDSubTag = 2

// DateTimeMs is a full 64-bit Unix epoch millisecond timestamp,
// reconstructed from the 16-bit value carried on the wire.
type DateTimeMs int64

// ErrDecode is wrapped by every codec decode failure.
var ErrDecode = errors.New("wire: decode error")

// GSObject is the closed sum type of synchronizable variants.
type GSObject interface {
	Tag() Tag
}

// Identified is implemented by variants that carry an ObjectId.
type Identified interface {
	GSObject
	ID() ObjectId
}

// Timestamped is implemented by variants that carry a reconstructed
// timestamp.
type Timestamped interface {
	Identified
	Timestamp() DateTimeMs
}

// Loc1 is a 3-component float32 position or scale, 12 bytes on the wire.
type Loc1 struct {
	X, Y, Z float32
}

// Rot1 is a 3-component float32 rotation, 12 bytes on the wire.
type Rot1 struct {
	X, Y, Z float32
}

// Loc2 is a 3-component half-float position plus half-float velocity,
// 12 bytes on the wire.
type Loc2 struct {
	X, Y, Z    GSHalf
	VX, VY, VZ GSHalf
}

// Rot2 is a 3-component half-float rotation plus half-float angular
// velocity, 12 bytes on the wire.
type Rot2 struct {
	X, Y, Z    GSHalf
	VX, VY, VZ GSHalf
}

// Transform1 pairs a Loc1 and a Rot1, 24 bytes on the wire. It is used for
// the wrist and finger-joint transforms of Hand2.
type Transform1 struct {
	Loc Loc1
	Rot Rot1
}

// TextureUV1 is a single mesh texture coordinate, 8 bytes on the wire.
type TextureUV1 struct {
	U, V float32
}

// Head1 is a timestamped head pose with an optional interpupillary distance.
type Head1 struct {
	ObjID    ObjectId
	Time     DateTimeMs
	Loc      Loc2
	Rot      Rot2
	HasIPD   bool
	IPD      GSHalf
}

func (o *Head1) Tag() Tag              { return TagHead1 }
func (o *Head1) ID() ObjectId          { return o.ObjID }
func (o *Head1) Timestamp() DateTimeMs { return o.Time }

// Hand1 is a timestamped single-wrist hand pose.
type Hand1 struct {
	ObjID ObjectId
	Time  DateTimeMs
	Left  bool
	Loc   Loc2
	Rot   Rot2
}

func (o *Hand1) Tag() Tag              { return TagHand1 }
func (o *Hand1) ID() ObjectId          { return o.ObjID }
func (o *Hand1) Timestamp() DateTimeMs { return o.Time }

// Object1 is a timestamped generic object with an optional parent.
type Object1 struct {
	ObjID     ObjectId
	Time      DateTimeMs
	Loc       Loc1
	Rot       Rot1
	Scale     Loc1
	HasParent bool
	ParentID  ObjectId
}

func (o *Object1) Tag() Tag              { return TagObject1 }
func (o *Object1) ID() ObjectId          { return o.ObjID }
func (o *Object1) Timestamp() DateTimeMs { return o.Time }

// Mesh1 is an untimed static mesh: counted arrays of vertices, normals,
// texture coordinates, and triangle indices.
type Mesh1 struct {
	ObjID     ObjectId
	Vertices  []Loc1
	Normals   []Loc1
	Textures  []TextureUV1
	Triangles []uint64
}

func (o *Mesh1) Tag() Tag     { return TagMesh1 }
func (o *Mesh1) ID() ObjectId { return o.ObjID }

// FingerTransforms holds the joint transforms of one non-thumb finger:
// metacarpal through fingertip.
type FingerTransforms [5]Transform1

// Hand2 is a timestamped full hand skeleton: wrist plus thumb and four
// finger joint chains.
type Hand2 struct {
	ObjID   ObjectId
	Time    DateTimeMs
	Left    bool
	Loc     Loc2
	Rot     Rot2
	Wrist   Transform1
	Thumb   [4]Transform1
	Fingers [4]FingerTransforms
}

func (o *Hand2) Tag() Tag              { return TagHand2 }
func (o *Hand2) ID() ObjectId          { return o.ObjID }
func (o *Hand2) Timestamp() DateTimeMs { return o.Time }

// HeadIPD1 is a standalone interpupillary-distance update. It carries
// neither an id nor a timestamp; a HeadIPD1 transceiver is registered by
// raw tag the same way an UnknownObject transceiver is.
type HeadIPD1 struct {
	IPD GSHalf
}

func (o *HeadIPD1) Tag() Tag { return TagHeadIPD1 }

// UnknownObject carries an opaque, unrecognized tag's raw body so it can
// round-trip bit-exact through a peer that doesn't understand it.
type UnknownObject struct {
	RawTag Tag
	Body   []byte
}

func (o *UnknownObject) Tag() Tag { return o.RawTag }
