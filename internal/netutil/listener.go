//go:build linux || darwin || freebsd

// MIT License
//
// Copyright (c) 2023 Spiral Scout
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package netutil builds the listening sockets the readiness loop polls.
// It generalizes a single HTTP listener factory to yinetd's per-service
// socket_type/inet_type combination, keeping the same SO_REUSEPORT /
// TCP_FASTOPEN listener-tuning idiom via roadrunner-server/tcplisten.
package netutil

import (
	"fmt"
	"net"

	"github.com/roadrunner-server/tcplisten"

	"github.com/yinetd/yinetd/config"
)

const (
	ipv4Network = "tcp4"
	ipv6Network = "tcp6"
)

// Listen binds the listening socket for svc. Only TCP is implemented —
// UDP is reserved by the protocol abstraction but out of scope, so a
// UDP service fails fast with a clear error rather than silently
// behaving like TCP.
func Listen(svc *config.Service) (net.Listener, error) {
	if svc.SocketType() == config.UDP {
		return nil, fmt.Errorf("service %q: UDP is reserved but not implemented", svc.Name())
	}

	addr, err := svc.SocketAddr()
	if err != nil {
		return nil, err
	}

	network := ipv4Network
	if svc.InetType() == config.IPv6 {
		network = ipv6Network
	}

	cfg := tcplisten.Config{
		ReusePort:   true,
		DeferAccept: false,
		FastOpen:    true,
	}

	return cfg.NewListener(network, addr.String())
}
