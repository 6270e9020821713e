// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package conn provides TCP-backed machine transports. Floor machines
// reach the network through serial-to-ethernet and Bluetooth-to-TCP
// adapters, so both transport flavors speak plain TCP here.
package conn

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/shopfloor-works/shopfloor/machine"
)

// Compile-time interface checks.
var (
	_ machine.ByteTransport    = (*byteConn)(nil)
	_ machine.CommandTransport = (*commandConn)(nil)
)

// DialByte connects a blocking byte transport for framed binary
// devices (the lathe's Bluetooth adapter).
func DialByte(address string) (machine.ByteTransport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	return &byteConn{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// DialCommand connects a request/response transport for line-oriented
// devices (the Haas mill's serial adapter).
func DialCommand(address string) (machine.CommandTransport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	return &commandConn{conn: conn, reader: bufio.NewReader(conn)}, nil
}

type byteConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Read blocks until exactly n bytes arrive.
func (c *byteConn) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, fmt.Errorf("reading %d bytes: %w", n, err)
	}
	return buf, nil
}

func (c *byteConn) Close() error {
	return c.conn.Close()
}

type commandConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *commandConn) Send(command []byte) error {
	if _, err := c.conn.Write(command); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	return nil
}

// ReadLine blocks until the device sends one newline-terminated line.
// The returned line has its trailing CR/LF stripped.
func (c *commandConn) ReadLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading reply line: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func (c *commandConn) Close() error {
	return c.conn.Close()
}
