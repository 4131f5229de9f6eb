package wire

import (
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func roundTrip(t *testing.T, obj GSObject, clock clockwork.Clock) GSObject {
	t.Helper()
	enc := NewEncoder(DefaultBufferSize)
	if err := enc.Encode(obj); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	dec := NewDecoder(enc.Bytes()).WithClock(clock)
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("expected io.EOF after single frame, got %v", err)
	}
	return got
}

func TestRoundTripHead1(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	want := &Head1{
		ObjID:  42,
		Time:   DateTimeMs(clock.Now().UnixMilli() - 500),
		Loc:    Loc2{X: Float32ToHalf(1.1), Y: Float32ToHalf(0.2), Z: Float32ToHalf(30)},
		Rot:    Rot2{},
		HasIPD: true,
		IPD:    Float32ToHalf(3.140625),
	}
	got := roundTrip(t, want, clock)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestHead1IPDEncodesExpectedHalfBits(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(0x0500))
	obj := &Head1{ObjID: 0, Time: 0, HasIPD: true, IPD: Float32ToHalf(3.140625)}
	enc := NewEncoder(DefaultBufferSize)
	if err := enc.Encode(obj); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b := enc.Bytes()
	if b[0] != byte(TagHead1) {
		t.Fatalf("tag byte = %#x, want %#x", b[0], TagHead1)
	}
	if len(b) < 2 || b[len(b)-2] != 0x42 || b[len(b)-1] != 0x48 {
		t.Fatalf("expected trailing IPD half bytes 42 48, got % x", b[len(b)-2:])
	}
	_ = clock
}

func TestRoundTripObject1WithParent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	want := &Object1{
		ObjID:     1,
		Time:      DateTimeMs(clock.Now().UnixMilli()),
		Loc:       Loc1{X: 1, Y: 2, Z: 3},
		Rot:       Rot1{X: 4, Y: 5, Z: 6},
		Scale:     Loc1{X: 7, Y: 8, Z: 9},
		HasParent: true,
		ParentID:  99,
	}
	got := roundTrip(t, want, clock)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestRoundTripObject1NoParent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	want := &Object1{ObjID: 1, Time: DateTimeMs(clock.Now().UnixMilli())}
	got := roundTrip(t, want, clock)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestRoundTripMesh1(t *testing.T) {
	want := &Mesh1{
		ObjID:     7,
		Vertices:  []Loc1{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
		Normals:   []Loc1{{X: 0, Y: 1, Z: 0}},
		Textures:  []TextureUV1{{U: 0, V: 0}, {U: 1, V: 1}},
		Triangles: []uint64{0, 1, 2, 2, 1, 3},
	}
	got := roundTrip(t, want, clockwork.NewRealClock())
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestRoundTripMesh1Empty(t *testing.T) {
	want := &Mesh1{ObjID: 7}
	got := roundTrip(t, want, clockwork.NewRealClock())
	gotMesh := got.(*Mesh1)
	if gotMesh.ObjID != want.ObjID || len(gotMesh.Vertices) != 0 || len(gotMesh.Triangles) != 0 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestRoundTripHand2(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	mkT := func(seed float32) Transform1 {
		return Transform1{Loc: Loc1{X: seed, Y: seed + 1, Z: seed + 2}, Rot: Rot1{X: seed + 3, Y: seed + 4, Z: seed + 5}}
	}
	want := &Hand2{
		ObjID: 5,
		Time:  DateTimeMs(clock.Now().UnixMilli()),
		Left:  true,
		Wrist: mkT(0),
		Thumb: [4]Transform1{mkT(1), mkT(2), mkT(3), mkT(4)},
		Fingers: [4]FingerTransforms{
			{mkT(5), mkT(6), mkT(7), mkT(8), mkT(9)},
			{mkT(10), mkT(11), mkT(12), mkT(13), mkT(14)},
			{mkT(15), mkT(16), mkT(17), mkT(18), mkT(19)},
			{mkT(20), mkT(21), mkT(22), mkT(23), mkT(24)},
		},
	}
	got := roundTrip(t, want, clock)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestUnknownObjectRoundTripBitExact(t *testing.T) {
	want := &UnknownObject{RawTag: 0x20, Body: []byte{0x01, 0x02, 0x03, 0xff}}
	enc := NewEncoder(DefaultBufferSize)
	if err := enc.Encode(want); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	original := append([]byte(nil), enc.Bytes()...)

	dec := NewDecoder(original)
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	gu := got.(*UnknownObject)
	if gu.RawTag != want.RawTag || !reflect.DeepEqual(gu.Body, want.Body) {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	enc2 := NewEncoder(DefaultBufferSize)
	if err := enc2.Encode(got); err != nil {
		t.Fatalf("re-encode error = %v", err)
	}
	if !reflect.DeepEqual(enc2.Bytes(), original) {
		t.Fatalf("re-encoded bytes differ from original:\nwant % x\ngot  % x", original, enc2.Bytes())
	}
}

func TestDecodeExhausted(t *testing.T) {
	dec := NewDecoder(nil)
	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty buffer, got %v", err)
	}
}

func TestDecodeTruncatedReturnsDecodeError(t *testing.T) {
	dec := NewDecoder([]byte{byte(TagHead1)})
	if _, err := dec.Decode(); err == nil {
		t.Fatal("expected decode error on truncated Head1, got nil")
	}
}

func TestEncodeFullLeavesBufferUnchanged(t *testing.T) {
	// A HeadIPD1 frame is 3 bytes (1 tag + 2 half-float body); a 2-byte
	// buffer cannot hold it.
	enc := NewEncoder(2)
	obj := &HeadIPD1{IPD: Float32ToHalf(1)}
	err := enc.Encode(obj)
	if err != ErrEncodeFull {
		t.Fatalf("Encode() error = %v, want ErrEncodeFull", err)
	}
	if enc.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after EncodeFull", enc.Len())
	}
}

func TestHalfFloatConversionRoundTrips(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 3.140625, 0.5, -0.5, 1024, 65504, -65504} {
		h := Float32ToHalf(f)
		if got := h.Float32(); got != f {
			t.Fatalf("Float32ToHalf(%v).Float32() = %v", f, got)
		}
	}
}

func TestExpandTime16WithinRecentPast(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_123_456))
	now := clock.Now().UnixMilli()
	for _, delta := range []int64{0, -1000, -30000, -65000} {
		orig := DateTimeMs(now + delta)
		low16 := truncateTime16(orig)
		got := expandTime16(low16, clock)
		if got != orig {
			t.Fatalf("expandTime16 delta=%d: got %d, want %d", delta, got, orig)
		}
	}
}
