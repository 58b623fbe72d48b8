// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/PosixResolvingFacility.cpp
//

package dns

import (
	"context"
	"errors"
	"net"

	"github.com/oxff/networkd"
)

// SyncResolver is the synchronous, blocking [Resolver] backed by
// [net.DefaultResolver.LookupIPAddr] (Go's getaddrinfo-equivalent), filtered
// to IPv4 results, matching the original's AI_ADDRCONFIG-hinted
// getaddrinfo() call. Using it stalls the reactor for the duration of the
// lookup; [AsyncResolver] is preferred for production daemons.
type SyncResolver struct {
	cfg *networkd.Config
}

// NewSyncResolver returns a [*SyncResolver] using cfg for logging.
func NewSyncResolver(cfg *networkd.Config) *SyncResolver {
	return &SyncResolver{cfg: cfg}
}

// Resolve implements [Resolver]. It calls deliver before returning.
func (r *SyncResolver) Resolve(name string, requester Requester, deliver func(addresses []string, status Status)) {
	addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), name)
	if err != nil {
		status := StatusFailed
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			status = StatusHostUnknown
		}
		r.cfg.Logger.Info("dnsResolve", "name", name, "status", status.String(), "err", err.Error())
		deliver(nil, status)
		return
	}

	var v4 []string
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			v4 = append(v4, ip4.String())
		}
	}

	status := StatusOk
	if len(v4) == 0 {
		status = StatusHostUnknown
	}
	r.cfg.Logger.Info("dnsResolve", "name", name, "status", status.String(), "count", len(v4))
	deliver(v4, status)
}

// CancelAll implements [Resolver] as a no-op, matching the original's
// synchronous facility (there is nothing in flight to cancel).
func (r *SyncResolver) CancelAll(requester Requester) {}
