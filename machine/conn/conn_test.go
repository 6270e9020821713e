// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package conn

import (
	"net"
	"testing"
)

// startServer accepts one connection and runs handle on it.
func startServer(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return listener.Addr().String()
}

func TestByteTransportReadsExactly(t *testing.T) {
	address := startServer(t, func(c net.Conn) {
		// Two frames delivered in one write; reads must not bleed
		// across the boundary.
		c.Write([]byte("AAAABBBB"))
	})

	transport, err := DialByte(address)
	if err != nil {
		t.Fatalf("DialByte: %v", err)
	}
	defer transport.Close()

	first, err := transport.Read(4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	second, err := transport.Read(4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(first) != "AAAA" || string(second) != "BBBB" {
		t.Fatalf("reads %q, %q", first, second)
	}
}

func TestByteTransportErrorsOnShortStream(t *testing.T) {
	address := startServer(t, func(c net.Conn) {
		c.Write([]byte("AB"))
	})

	transport, err := DialByte(address)
	if err != nil {
		t.Fatalf("DialByte: %v", err)
	}
	defer transport.Close()

	if _, err := transport.Read(8); err == nil {
		t.Fatal("Read succeeded on truncated stream")
	}
}

func TestCommandTransportRoundTrip(t *testing.T) {
	address := startServer(t, func(c net.Conn) {
		buf := make([]byte, 64)
		n, err := c.Read(buf)
		if err != nil {
			return
		}
		if string(buf[:n]) == "?Q600 3027\r\n" {
			c.Write([]byte("MACRO, SPINDLE SPEED, 500\r\n"))
		}
	})

	transport, err := DialCommand(address)
	if err != nil {
		t.Fatalf("DialCommand: %v", err)
	}
	defer transport.Close()

	if err := transport.Send([]byte("?Q600 3027\r\n")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	line, err := transport.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "MACRO, SPINDLE SPEED, 500" {
		t.Fatalf("line %q, want CR/LF stripped reply", line)
	}
}

func TestDialFailsFast(t *testing.T) {
	if _, err := DialByte("127.0.0.1:1"); err == nil {
		t.Fatal("DialByte succeeded against closed port")
	}
}
