package config

import (
	"net"

	"github.com/yinetd/yinetd/internal/errs"
)

// Service is the immutable, fully-materialized form of one `service
// NAME { ... }` block, with defaults applied and required fields
// checked present.
type Service struct {
	name  string
	index int

	server        string
	port          uint16
	socketType    SocketType
	inetType      InetType
	serverArgs    []string
	uid           *uint32
	listenAddress net.IP
}

func (s *Service) Name() string             { return s.name }
func (s *Service) Index() int               { return s.index }
func (s *Service) Server() string           { return s.server }
func (s *Service) Port() uint16             { return s.port }
func (s *Service) SocketType() SocketType   { return s.socketType }
func (s *Service) InetType() InetType       { return s.inetType }
func (s *Service) ServerArgs() []string     { return s.serverArgs }
func (s *Service) UID() (uint32, bool) {
	if s.uid == nil {
		return 0, false
	}
	return *s.uid, true
}
func (s *Service) ListenAddress() (net.IP, bool) {
	if s.listenAddress == nil {
		return nil, false
	}
	return s.listenAddress, true
}

// SocketAddr computes the effective bind address: listenAddress if set
// (and matching inetType), otherwise the unspecified address for
// inetType. Returns an InetVersionAddressMismatch error if the two
// disagree — this check is deferred to here, not to parse time, since
// listen_address and inet_type may be set by different blocks
// (default vs. service) and are only known to conflict once merged.
func (s *Service) SocketAddr() (*net.TCPAddr, error) {
	if s.listenAddress != nil {
		if ipFamily(s.listenAddress) != s.inetType {
			return nil, errs.NewInetVersionAddressMismatch(s.inetType.String(), s.listenAddress.String(), s.name)
		}
		return &net.TCPAddr{IP: s.listenAddress, Port: int(s.port)}, nil
	}
	return &net.TCPAddr{IP: s.inetType.Unspecified(), Port: int(s.port)}, nil
}

// materialize converts a merged partial option into a final Service,
// failing with MissingRequiredOption if a required field is unset, and
// filling in hard-coded defaults for optional-with-default fields.
func materialize(name string, index int, opt *ServiceOption, blockSpan errs.Span) (*Service, error) {
	svc := &Service{name: name, index: index}

	if opt.Server == nil {
		return nil, errs.NewMissingRequiredOption("server", name, blockSpan)
	}
	svc.server = *opt.Server

	if opt.Port == nil {
		return nil, errs.NewMissingRequiredOption("port", name, blockSpan)
	}
	svc.port = *opt.Port

	if opt.SocketType != nil {
		svc.socketType = *opt.SocketType
	} else {
		svc.socketType = TCP
	}

	if opt.InetType != nil {
		svc.inetType = *opt.InetType
	} else {
		svc.inetType = IPv4
	}

	if opt.ServerArgs != nil {
		svc.serverArgs = *opt.ServerArgs
	} else {
		svc.serverArgs = []string{}
	}

	svc.uid = opt.UID

	if opt.ListenAddress != nil {
		svc.listenAddress = *opt.ListenAddress
	}

	return svc, nil
}
