package config

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/yinetd/yinetd/internal/errs"
)

// ServiceOption is the partial form of Service: every field is "maybe
// set". A service block, and the default block, each parse into one of
// these; materialize then merges a service's option with the config's
// default option and fills in hard-coded defaults.
type ServiceOption struct {
	Server        *string
	Port          *uint16
	SocketType    *SocketType
	InetType      *InetType
	ServerArgs    *[]string
	UID           *uint32
	ListenAddress *net.IP
}

type optionSpec struct {
	key      string
	required bool
	isSet    func(*ServiceOption) bool
	parse    func(*ServiceOption, string, errs.Span) error
}

// optionTable drives the option collector: key lookup, duplicate
// detection and value parsing. mergeDefaults and materialize list the
// fields by hand and do not read this table (its required flag is not
// consulted), so a new key also needs entries in both of them.
var optionTable = []optionSpec{
	{
		key:      "server",
		required: true,
		isSet:    func(o *ServiceOption) bool { return o.Server != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			v := strings.TrimSpace(raw)
			o.Server = &v
			return nil
		},
	},
	{
		key:      "port",
		required: true,
		isSet:    func(o *ServiceOption) bool { return o.Port != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			p, err := parsePort(raw)
			if err != nil {
				return valueErr("port", span, err)
			}
			o.Port = &p
			return nil
		},
	},
	{
		key:      "socket_type",
		required: false,
		isSet:    func(o *ServiceOption) bool { return o.SocketType != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			t, err := parseSocketType(raw)
			if err != nil {
				return valueErr("socket_type", span, err)
			}
			o.SocketType = &t
			return nil
		},
	},
	{
		key:      "inet_type",
		required: false,
		isSet:    func(o *ServiceOption) bool { return o.InetType != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			t, err := parseInetType(raw)
			if err != nil {
				return valueErr("inet_type", span, err)
			}
			o.InetType = &t
			return nil
		},
	},
	{
		key:      "server_args",
		required: false,
		isSet:    func(o *ServiceOption) bool { return o.ServerArgs != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			args, err := splitShellArgs(raw)
			if err != nil {
				return valueErr("server_args", span, err)
			}
			o.ServerArgs = &args
			return nil
		},
	},
	{
		key:      "uid",
		required: false,
		isSet:    func(o *ServiceOption) bool { return o.UID != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			u, err := parseUID(raw)
			if err != nil {
				return valueErr("uid", span, err)
			}
			o.UID = &u
			return nil
		},
	},
	{
		key:      "listen_address",
		required: false,
		isSet:    func(o *ServiceOption) bool { return o.ListenAddress != nil },
		parse: func(o *ServiceOption, raw string, span errs.Span) error {
			ip, err := parseListenAddress(raw)
			if err != nil {
				return valueErr("listen_address", span, err)
			}
			o.ListenAddress = &ip
			return nil
		},
	},
}

func findOption(key string) (optionSpec, bool) {
	for _, spec := range optionTable {
		if spec.key == key {
			return spec, true
		}
	}
	return optionSpec{}, false
}

func validKeyList() string {
	keys := make([]string, 0, len(optionTable))
	for _, spec := range optionTable {
		keys = append(keys, spec.key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// collectOptions builds a ServiceOption from one parsed block, enforcing
// per-block unknown-key reporting and duplicate detection. The
// default block and every service block are each checked independently:
// the "seen" set here never crosses block boundaries.
func collectOptions(b block) (*ServiceOption, error) {
	opt := &ServiceOption{}

	for _, p := range b.props {
		spec, ok := findOption(p.name)
		if !ok {
			return nil, errs.NewParse(fmt.Sprintf("unknown option %q (valid options: %s)", p.name, validKeyList()), p.nameSpan)
		}

		if spec.isSet(opt) {
			return nil, errs.NewDuplicateOption(p.name, p.nameSpan)
		}

		if err := spec.parse(opt, p.value, p.valueSpan); err != nil {
			return nil, err
		}
	}

	return opt, nil
}

// mergeDefaults returns a new ServiceOption where every field unset on
// svc is filled in from def (which may itself be unset, leaving the
// field unset). This is a pure function: neither argument is mutated.
func mergeDefaults(svc, def *ServiceOption) *ServiceOption {
	merged := *svc

	if merged.Server == nil {
		merged.Server = def.Server
	}
	if merged.Port == nil {
		merged.Port = def.Port
	}
	if merged.SocketType == nil {
		merged.SocketType = def.SocketType
	}
	if merged.InetType == nil {
		merged.InetType = def.InetType
	}
	if merged.ServerArgs == nil {
		merged.ServerArgs = def.ServerArgs
	}
	if merged.UID == nil {
		merged.UID = def.UID
	}
	if merged.ListenAddress == nil {
		merged.ListenAddress = def.ListenAddress
	}

	return &merged
}
