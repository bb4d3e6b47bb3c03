package sockdiag

import (
	"encoding/binary"
	"testing"

	"github.com/mdlayher/netlink"
)

func TestEncodeUnixDiagReq(t *testing.T) {
	buf := encodeUnixDiagReq(42)
	if len(buf) != 24 {
		t.Fatalf("len(buf) = %d, want 24", len(buf))
	}
	if got := binary.LittleEndian.Uint32(buf[8:12]); got != 42 {
		t.Errorf("udiag_ino = %d, want 42", got)
	}
	if got := binary.LittleEndian.Uint32(buf[12:16]); got != udiagShowPeer {
		t.Errorf("udiag_show = %d, want %d", got, udiagShowPeer)
	}
}

func TestDecodeUnixDiagMsgWithPeer(t *testing.T) {
	header := make([]byte, 16)
	peerAttr, err := netlink.MarshalAttributes([]netlink.Attribute{
		{Type: unixDiagPeer, Data: []byte{7, 0, 0, 0}},
	})
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}

	peer, ok, err := decodeUnixDiagMsg(append(header, peerAttr...))
	if err != nil {
		t.Fatalf("decodeUnixDiagMsg: %v", err)
	}
	if !ok {
		t.Fatal("expected a peer attribute to be found")
	}
	if peer != 7 {
		t.Errorf("peer = %d, want 7", peer)
	}
}

func TestDecodeUnixDiagMsgWithoutPeer(t *testing.T) {
	header := make([]byte, 16)
	_, ok, err := decodeUnixDiagMsg(header)
	if err != nil {
		t.Fatalf("decodeUnixDiagMsg: %v", err)
	}
	if ok {
		t.Error("expected no peer attribute to be found")
	}
}

func TestDecodeUnixDiagMsgShort(t *testing.T) {
	if _, _, err := decodeUnixDiagMsg([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short message")
	}
}
