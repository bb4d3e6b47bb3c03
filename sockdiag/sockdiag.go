// Package sockdiag resolves the peer of a Unix-domain socket given its
// inode, using a netlink NETLINK_SOCK_DIAG request. This is how the
// foreground tracker discovers which process is on the other end of an
// AF_UNIX socket without needing any cooperation from that process.
package sockdiag

import (
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	terrors "github.com/owtaylor/ttymon/errors"
)

// netlinkSockDiag is NETLINK_SOCK_DIAG (linux/netlink.h); not exposed
// by golang.org/x/sys/unix under a stable name on all architectures.
const netlinkSockDiag = 4

// sockDiagByFamily is SOCK_DIAG_BY_FAMILY from linux/sock_diag.h.
const sockDiagByFamily = 20

// Unix-domain sock_diag request/response layout, from
// linux/unix_diag.h.
const (
	udiagShowPeer = 1 << 2 // UDIAG_SHOW_PEER

	unixDiagPeer = 2 // UNIX_DIAG_PEER attribute type
)

// PeerInode queries NETLINK_SOCK_DIAG for the Unix-socket identified by
// ino and returns the inode of its peer. A zero result means the
// socket is unbound (has no peer).
func PeerInode(ino uint64) (uint64, error) {
	conn, err := netlink.Dial(netlinkSockDiag, nil)
	if err != nil {
		return 0, terrors.Wrap(err, terrors.ErrIntrospect, "dial sock_diag netlink")
	}
	defer conn.Close()

	req := netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(sockDiagByFamily),
			Flags: netlink.Request,
		},
		Data: encodeUnixDiagReq(ino),
	}

	msgs, err := conn.Execute(req)
	if err != nil {
		return 0, terrors.Wrap(err, terrors.ErrIntrospect, "sock_diag request")
	}

	for _, m := range msgs {
		peer, ok, err := decodeUnixDiagMsg(m.Data)
		if err != nil {
			return 0, terrors.Wrap(err, terrors.ErrIntrospect, "sock_diag response")
		}
		if ok {
			return peer, nil
		}
	}
	return 0, terrors.WrapWithDetail(terrors.ErrNetlinkRequest, terrors.ErrIntrospect, "sock_diag response", fmt.Sprintf("no diag message for inode %d", ino))
}

// encodeUnixDiagReq builds a struct unix_diag_req body requesting the
// peer of the socket identified by ino, across all socket states, with
// an opaque (all-0xFF) cookie meaning "don't care".
func encodeUnixDiagReq(ino uint64) []byte {
	buf := make([]byte, 24)
	buf[0] = unix.AF_UNIX // sdiag_family
	buf[1] = 0            // sdiag_protocol
	// buf[2:4] padding
	binary.LittleEndian.PutUint32(buf[4:8], 0xFFFFFFFF) // udiag_states: all
	binary.LittleEndian.PutUint32(buf[8:12], uint32(ino))
	binary.LittleEndian.PutUint32(buf[12:16], udiagShowPeer)
	binary.LittleEndian.PutUint32(buf[16:20], 0xFFFFFFFF) // udiag_cookie[0]
	binary.LittleEndian.PutUint32(buf[20:24], 0xFFFFFFFF) // udiag_cookie[1]
	return buf
}

// decodeUnixDiagMsg parses a struct unix_diag_msg plus its attributes,
// returning the peer inode from the UNIX_DIAG_PEER attribute if
// present.
func decodeUnixDiagMsg(data []byte) (peer uint64, ok bool, err error) {
	const headerLen = 16
	if len(data) < headerLen {
		return 0, false, fmt.Errorf("short unix_diag_msg: %d bytes", len(data))
	}

	attrs, err := netlink.UnmarshalAttributes(data[headerLen:])
	if err != nil {
		return 0, false, err
	}
	for _, a := range attrs {
		if a.Type == unixDiagPeer && len(a.Data) >= 4 {
			return uint64(binary.LittleEndian.Uint32(a.Data)), true, nil
		}
	}
	return 0, false, nil
}
