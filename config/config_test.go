package config

import (
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/yinetd/yinetd/internal/errs"
)

func TestParseStringSingleServiceNoDefault(t *testing.T) {
	cfg, err := ParseString(`
service echo {
	server = /bin/cat
	port = 7
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Services()) != 1 {
		t.Fatalf("got %d services, want 1", len(cfg.Services()))
	}
	svc, ok := cfg.Service("echo")
	if !ok {
		t.Fatal("expected service \"echo\" to exist")
	}
	if svc.Server() != "/bin/cat" {
		t.Fatalf("got server %q, want /bin/cat", svc.Server())
	}
	if svc.Port() != 7 {
		t.Fatalf("got port %d, want 7", svc.Port())
	}
	if svc.SocketType() != TCP {
		t.Fatalf("expected default socket_type TCP")
	}
	if svc.InetType() != IPv4 {
		t.Fatalf("expected default inet_type IPv4")
	}
	if len(svc.ServerArgs()) != 0 {
		t.Fatalf("expected default empty server_args, got %v", svc.ServerArgs())
	}
}

func TestParseStringDefaultUIDApplied(t *testing.T) {
	cfg, err := ParseString(`
default {
	uid = 65534
}
service echo {
	server = /bin/cat
	port = 7
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, _ := cfg.Service("echo")
	uid, ok := svc.UID()
	if !ok || uid != 65534 {
		t.Fatalf("got uid=%v ok=%v, want 65534/true", uid, ok)
	}
}

func TestParseStringServiceOverridesDefault(t *testing.T) {
	cfg, err := ParseString(`
default {
	uid = 65534
	socket_type = udp
}
service echo {
	server = /bin/cat
	port = 7
	uid = 1000
	socket_type = tcp
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, _ := cfg.Service("echo")
	uid, _ := svc.UID()
	if uid != 1000 {
		t.Fatalf("got uid %d, want 1000 (service override)", uid)
	}
	if svc.SocketType() != TCP {
		t.Fatalf("expected socket_type override to win")
	}
}

func TestParseStringDuplicateOption(t *testing.T) {
	_, err := ParseString(`
service echo {
	server = /bin/cat
	server = /bin/echo
	port = 7
}
`)
	assertKind(t, err, errs.DuplicateOption)
}

func TestParseStringMissingRequiredOption(t *testing.T) {
	_, err := ParseString(`
service echo {
	port = 7
}
`)
	assertKind(t, err, errs.MissingRequiredOption)
}

func TestParseStringDuplicateDefaultBlock(t *testing.T) {
	_, err := ParseString(`
default {
	uid = 1
}
default {
	uid = 2
}
service echo {
	server = /bin/cat
	port = 7
}
`)
	if err == nil {
		t.Fatal("expected error for duplicate default block")
	}
	if !strings.Contains(err.Error(), "duplicate default block") {
		t.Fatalf("got error %q, want it to mention duplicate default block", err.Error())
	}
}

func TestParseStringDuplicateService(t *testing.T) {
	_, err := ParseString(`
service echo {
	server = /bin/cat
	port = 7
}
service echo {
	server = /bin/echo
	port = 8
}
`)
	assertKind(t, err, errs.DuplicateService)
}

func TestParseStringAddressFamilyMismatch(t *testing.T) {
	// The family-mismatch check is deferred to SocketAddr(), not performed
	// at parse time, since listen_address and inet_type may come from
	// different blocks and are only known to conflict once merged.
	cfg, err := ParseString(`
service echo {
	server = /bin/cat
	port = 7
	inet_type = ipv6
	listen_address = 127.0.0.1
}
`)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	svc, _ := cfg.Service("echo")
	_, err = svc.SocketAddr()
	assertKind(t, err, errs.InetVersionAddressMismatch)
}

func TestParseStringDefaultIPv6ListenAddress(t *testing.T) {
	cfg, err := ParseString(`
default {
	inet_type = ipv6
	listen_address = ::1
}
service echo {
	server = /bin/cat
	port = 7
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, _ := cfg.Service("echo")
	addr, err := svc.SocketAddr()
	if err != nil {
		t.Fatalf("unexpected SocketAddr error: %v", err)
	}
	if addr.IP.String() != "::1" {
		t.Fatalf("got bind address %s, want ::1", addr.IP.String())
	}
}

func TestParseStringUnknownOption(t *testing.T) {
	_, err := ParseString(`
service echo {
	server = /bin/cat
	port = 7
	bogus = 1
}
`)
	if err == nil {
		t.Fatal("expected error for unknown option")
	}
	if !strings.Contains(err.Error(), "unknown option") {
		t.Fatalf("got error %q, want it to mention unknown option", err.Error())
	}
}

func TestParseStringServerArgsSplitting(t *testing.T) {
	cfg, err := ParseString(`
service shell {
	server = /bin/sh
	port = 23
	server_args = -c "echo hi"
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, _ := cfg.Service("shell")
	want := []string{"-c", "echo hi"}
	got := svc.ServerArgs()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConfigInsertionOrderPreserved(t *testing.T) {
	cfg, err := ParseString(`
service a {
	server = /bin/a
	port = 1
}
service b {
	server = /bin/b
	port = 2
}
service c {
	server = /bin/c
	port = 3
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := make([]string, len(cfg.Services()))
	for i, svc := range cfg.Services() {
		names[i] = svc.Name()
		if svc.Index() != i {
			t.Fatalf("service %q has index %d, want %d", svc.Name(), svc.Index(), i)
		}
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got order %v, want %v", names, want)
		}
	}
}

// serviceSummary captures the observable shape of a Service through its
// exported accessors, so two configs can be compared for semantic
// equivalence regardless of source formatting.
type serviceSummary struct {
	Name       string
	Server     string
	Port       uint16
	SocketType string
	InetType   string
	ServerArgs []string
}

func summarize(cfg *Config) []serviceSummary {
	out := make([]serviceSummary, len(cfg.Services()))
	for i, svc := range cfg.Services() {
		out[i] = serviceSummary{
			Name:       svc.Name(),
			Server:     svc.Server(),
			Port:       svc.Port(),
			SocketType: svc.SocketType().String(),
			InetType:   svc.InetType().String(),
			ServerArgs: svc.ServerArgs(),
		}
	}
	return out
}

func TestParseStringEquivalentUnderReformatting(t *testing.T) {
	a, err := ParseString(`
default {
	uid = 65534
}
service echo {
	server = /bin/cat
	port = 7
	server_args = -n
}
`)
	if err != nil {
		t.Fatalf("unexpected error parsing a: %v", err)
	}

	b, err := ParseString(`
default   {
    uid   =   65534
}


service   echo   {
    server      = /bin/cat
    port        = 7
    server_args = -n
}
`)
	if err != nil {
		t.Fatalf("unexpected error parsing b: %v", err)
	}

	if diff := deep.Equal(summarize(a), summarize(b)); diff != nil {
		t.Errorf("differently-formatted but semantically identical configs diverged: %v", diff)
	}
}

func assertKind(t *testing.T, err error, want errs.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", want)
	}
	if !errs.Is(err, want) {
		t.Fatalf("got error %q, want kind %v", err.Error(), want)
	}
}
