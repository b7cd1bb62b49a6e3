package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/woozymasta/gsdash/internal/models"
)

const (
	// any protocol version, the server answers with its own
	slpProtocolVersion = -1
	slpMaxPacket       = 1 << 21
)

// slpStatus is the JSON document of a status response.
type slpStatus struct {
	Description json.RawMessage `json:"description"`
	Version     struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
}

// Minecraft performs a Server List Ping: handshake, status request and a
// ping/pong round trip used as latency.
func Minecraft(ctx context.Context, host string, port int, opts Options) (*models.ServerStatus, error) {
	dialer := net.Dialer{Timeout: opts.Timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("query Minecraft server %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}

	status, err := slpExchange(conn, host, port)
	if err != nil {
		return nil, fmt.Errorf("query Minecraft server %s: %w", addr, err)
	}

	return status, nil
}

func slpExchange(conn io.ReadWriter, host string, port int) (*models.ServerStatus, error) {
	// handshake, next state = status
	var hs []byte
	hs = binary.AppendUvarint(hs, 0x00)
	hs = binary.AppendUvarint(hs, varInt(slpProtocolVersion))
	hs = appendString(hs, host)
	hs = binary.BigEndian.AppendUint16(hs, uint16(port))
	hs = binary.AppendUvarint(hs, 1)

	if err := writePacket(conn, hs); err != nil {
		return nil, err
	}
	if err := writePacket(conn, []byte{0x00}); err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	payload, err := readPacket(r, 0x00)
	if err != nil {
		return nil, err
	}

	body, err := readString(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var st slpStatus
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	start := time.Now()
	ping := binary.AppendUvarint(nil, 0x01)
	ping = binary.BigEndian.AppendUint64(ping, uint64(start.UnixMilli()))
	if err := writePacket(conn, ping); err != nil {
		return nil, err
	}
	if _, err := readPacket(r, 0x01); err != nil {
		return nil, err
	}

	return &models.ServerStatus{
		Online:      true,
		Players:     st.Players.Online,
		MaxPlayers:  st.Players.Max,
		Version:     st.Version.Name,
		Ping:        max(time.Since(start).Milliseconds(), 1),
		LastUpdated: time.Now(),
	}, nil
}

// varInt maps a signed VarInt onto the unsigned encoding, negative values take five bytes.
func varInt(v int32) uint64 {
	return uint64(uint32(v))
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func writePacket(w io.Writer, data []byte) error {
	frame := binary.AppendUvarint(nil, uint64(len(data)))
	frame = append(frame, data...)
	_, err := w.Write(frame)

	return err
}

// readPacket reads one frame and checks its packet id. The payload after the id is returned.
func readPacket(r *bufio.Reader, wantID uint64) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 || n > slpMaxPacket {
		return nil, fmt.Errorf("invalid packet length %d", n)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}

	br := bytes.NewReader(frame)
	id, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	if id != wantID {
		return nil, fmt.Errorf("unexpected packet id 0x%02x", id)
	}

	return frame[len(frame)-br.Len():], nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(r.Len()) {
		return "", errors.New("truncated string")
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}
