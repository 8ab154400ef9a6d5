// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net"
	"strings"
)

// loopbackBlocks contains the CIDR ranges treated as the local machine.
var loopbackBlocks []*net.IPNet

func init() {
	cidrs := []string{
		"127.0.0.0/8", // RFC 1122 - loopback
		"::1/128",     // IPv6 loopback
	}
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			loopbackBlocks = append(loopbackBlocks, block)
		}
	}
}

// IsLoopbackHost reports whether host names the local machine.
// host may be a name, an IPv4 address, or a bracketed or bare IPv6
// address. Names other than localhost are not resolved.
func IsLoopbackHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, block := range loopbackBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
