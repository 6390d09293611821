package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Anthya1104/dss/internal/config"
	"github.com/sirupsen/logrus"
)

// Addr is a contact point: an IPv4 address plus a port. It is the wire
// shape carried in dss_params.disks / manager directory responses.
type Addr struct {
	IPv4 string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.IPv4, fmt.Sprintf("%d", a.Port))
}

// Handler processes one decoded request and returns the response to send
// back, or nil if no reply should be sent (spec.md §4.2: encoding errors
// yield no reply).
type Handler func(req *Request, from net.Addr) *Response

// --- UDP: used for the manager endpoint, for the disk's no-op
// management-port receive loop, and as the client side for all commands
// whose payload doesn't carry block data. The user process registers its
// ports with the manager but binds no listener on them. ---

// SendUDPRequest dials addr over UDP, sends req, and waits up to the
// command timeout for a response on the same ephemeral socket.
func SendUDPRequest(addr Addr, req *Request) (*Response, error) {
	conn, err := net.DialTimeout("udp", addr.String(), config.CommandTimeoutSeconds*time.Second)
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	defer conn.Close()

	payload, err := Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("wire: write to %s: %w", addr, err)
	}

	conn.SetReadDeadline(time.Now().Add(config.CommandTimeoutSeconds * time.Second))
	buf := make([]byte, config.MaxDatagramPayload)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("wire: no response from %s: %w", addr, err)
	}

	return UnmarshalResponse(buf[:n])
}

// UDPListener serves request/response traffic on a single UDP socket,
// bounded by a short receive timeout per iteration so Stop is observed
// promptly (spec.md §5: "A 1-second receive timeout is used on the disk's
// background loops so shutdown is bounded").
type UDPListener struct {
	name    string
	conn    *net.UDPConn
	running bool
}

// ListenUDP binds a UDP socket on port and returns a listener.
func ListenUDP(name string, port int) (*UDPListener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("wire: bind udp port %d: %w", port, err)
	}
	return &UDPListener{name: name, conn: conn, running: true}, nil
}

// Serve runs the receive loop until Stop is called. handler may return
// nil to send no reply (e.g. a no-op management endpoint that only logs).
func (l *UDPListener) Serve(handler Handler) {
	buf := make([]byte, config.MaxDatagramPayload)
	for l.running {
		l.conn.SetReadDeadline(time.Now().Add(config.BackgroundLoopTimeoutSeconds * time.Second))
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !l.running {
				return
			}
			continue
		}

		req, err := UnmarshalRequest(buf[:n])
		if err != nil {
			logrus.Warnf("%s: failed to parse request from %s: %v", l.name, from, err)
			continue
		}

		resp := handler(req, from)
		if resp == nil {
			continue
		}
		payload, err := Marshal(resp)
		if err != nil {
			logrus.Warnf("%s: failed to marshal response for %s: %v", l.name, from, err)
			continue
		}
		if _, err := l.conn.WriteToUDP(payload, from); err != nil {
			logrus.Warnf("%s: failed to reply to %s: %v", l.name, from, err)
		}
	}
}

// Stop ends the receive loop and closes the socket.
func (l *UDPListener) Stop() {
	l.running = false
	l.conn.Close()
}

// --- Stream (TCP): used for the disk command endpoint and for sending
// write-block/read-block/recovery-write, whose payload scales with the
// striping unit up to 1 MiB and so cannot ride a single UDP datagram
// (spec.md §6, §9 "Open question"). Frames are length-prefixed JSON. ---

func writeFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// SendStreamRequest dials addr over TCP, sends one length-prefixed request
// frame, and waits for one length-prefixed response frame.
func SendStreamRequest(addr Addr, req *Request) (*Response, error) {
	conn, err := net.DialTimeout("tcp", addr.String(), config.CommandTimeoutSeconds*time.Second)
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	defer conn.Close()

	payload, err := Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("wire: write to %s: %w", addr, err)
	}

	conn.SetReadDeadline(time.Now().Add(config.CommandTimeoutSeconds * time.Second))
	respPayload, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("wire: no response from %s: %w", addr, err)
	}
	return UnmarshalResponse(respPayload)
}

// StreamListener serves one request per accepted connection: read one
// frame, call handler, write one frame, close. Bounded accept deadlines
// keep Stop responsive, matching UDPListener's shutdown behavior.
type StreamListener struct {
	name    string
	ln      *net.TCPListener
	running bool
}

// ListenStream binds a TCP listener on port.
func ListenStream(name string, port int) (*StreamListener, error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("wire: bind tcp port %d: %w", port, err)
	}
	return &StreamListener{name: name, ln: ln, running: true}, nil
}

// Serve accepts connections until Stop is called, handling each serially
// (block writes to the same (file, stripe) on a disk are totally ordered,
// spec.md §5, so a disk need not handle connections concurrently to
// satisfy that invariant; the store's own mutex enforces it regardless).
func (l *StreamListener) Serve(handler Handler) {
	for l.running {
		l.ln.SetDeadline(time.Now().Add(config.BackgroundLoopTimeoutSeconds * time.Second))
		conn, err := l.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !l.running {
				return
			}
			continue
		}
		l.handleConn(conn, handler)
	}
}

func (l *StreamListener) handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(config.CommandTimeoutSeconds * time.Second))
	payload, err := readFrame(conn)
	if err != nil {
		logrus.Warnf("%s: failed to read request from %s: %v", l.name, conn.RemoteAddr(), err)
		return
	}

	req, err := UnmarshalRequest(payload)
	if err != nil {
		logrus.Warnf("%s: failed to parse request from %s: %v", l.name, conn.RemoteAddr(), err)
		return
	}

	resp := handler(req, conn.RemoteAddr())
	if resp == nil {
		return
	}
	respPayload, err := Marshal(resp)
	if err != nil {
		logrus.Warnf("%s: failed to marshal response for %s: %v", l.name, conn.RemoteAddr(), err)
		return
	}
	if err := writeFrame(conn, respPayload); err != nil {
		logrus.Warnf("%s: failed to reply to %s: %v", l.name, conn.RemoteAddr(), err)
	}
}

// Stop ends the accept loop and closes the listener.
func (l *StreamListener) Stop() {
	l.running = false
	l.ln.Close()
}

// Port returns the listener's bound port, useful when ListenStream was
// called with port 0 (OS-assigned, as tests do to avoid collisions).
func (l *StreamListener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}
