package udp

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/embeddednet/stack/pkg/common"
	"github.com/embeddednet/stack/pkg/igmp"
)

var (
	testIP    = common.IPv4Address{192, 168, 1, 50}
	testGroup = common.IPv4Address{239, 1, 2, 3}
)

func newEngine() *igmp.Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return igmp.New(igmp.Config{LocalIP: testIP, Logger: log})
}

func TestBind(t *testing.T) {
	sock := NewSocket()
	addr := Address{IP: testIP, Port: 5000}

	if err := sock.Bind(addr); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	got, err := sock.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr() error = %v", err)
	}
	if got != addr {
		t.Errorf("LocalAddr() = %v, want %v", got, addr)
	}

	if err := sock.Bind(addr); err == nil {
		t.Error("second Bind() error = nil, want error")
	}
}

func TestLocalAddrUnbound(t *testing.T) {
	sock := NewSocket()
	if _, err := sock.LocalAddr(); err == nil {
		t.Error("LocalAddr() on unbound socket error = nil, want error")
	}
}

func TestJoinLeaveGroup(t *testing.T) {
	e := newEngine()
	sock := NewSocket()

	if err := sock.JoinGroup(e, testGroup, testIP); err != nil {
		t.Fatalf("JoinGroup() error = %v", err)
	}
	if got := len(sock.Groups()); got != 1 {
		t.Errorf("len(Groups()) = %d, want 1", got)
	}
	if got := e.Registry().Len(); got != 1 {
		t.Errorf("Registry().Len() = %d, want 1", got)
	}

	if err := sock.LeaveGroup(e, testGroup); err != nil {
		t.Fatalf("LeaveGroup() error = %v", err)
	}
	if got := len(sock.Groups()); got != 0 {
		t.Errorf("len(Groups()) = %d after leave, want 0", got)
	}
	if got := e.Registry().Len(); got != 0 {
		t.Errorf("Registry().Len() = %d after leave, want 0", got)
	}
}

func TestJoinGroupNonMulticast(t *testing.T) {
	e := newEngine()
	sock := NewSocket()
	if err := sock.JoinGroup(e, testIP, testIP); err == nil {
		t.Error("JoinGroup(unicast) error = nil, want error")
	}
	if err := sock.LeaveGroup(e, testIP); err == nil {
		t.Error("LeaveGroup(unicast) error = nil, want error")
	}
}

func TestCloseDropsMemberships(t *testing.T) {
	e := newEngine()
	sock := NewSocket()

	groups := []common.IPv4Address{testGroup, {239, 1, 2, 4}}
	for _, g := range groups {
		if err := sock.JoinGroup(e, g, testIP); err != nil {
			t.Fatalf("JoinGroup(%v) error = %v", g, err)
		}
	}

	if err := sock.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !sock.IsClosed() {
		t.Error("IsClosed() = false after Close, want true")
	}
	if got := e.Registry().Len(); got != 0 {
		t.Errorf("Registry().Len() = %d after Close, want 0", got)
	}

	if err := sock.Close(); err == nil {
		t.Error("second Close() error = nil, want error")
	}
}

func TestJoinAfterClose(t *testing.T) {
	e := newEngine()
	sock := NewSocket()
	if err := sock.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sock.JoinGroup(e, testGroup, testIP); err == nil {
		t.Error("JoinGroup() after Close error = nil, want error")
	}
}

func TestGroupsSnapshotDuringRunnerTraffic(t *testing.T) {
	e := newEngine()
	r := igmp.NewRunner(e, nil)
	r.Start()
	defer r.Stop()

	sock := NewSocket()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := sock.JoinGroup(r, testGroup, testIP); err != nil {
				t.Errorf("JoinGroup() error = %v", err)
				return
			}
			if err := sock.LeaveGroup(r, testGroup); err != nil {
				t.Errorf("LeaveGroup() error = %v", err)
				return
			}
		}
	}()

	// Snapshot reads race the processing goroutine applying the queued
	// joins and leaves unless the group list guards itself.
	for {
		select {
		case <-done:
			if err := sock.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			return
		default:
			if got := len(sock.Groups()); got > 1 {
				t.Fatalf("len(Groups()) = %d, want at most 1", got)
			}
		}
	}
}

func TestAddressString(t *testing.T) {
	addr := Address{IP: testIP, Port: 5000}
	want := "192.168.1.50:5000"
	if got := addr.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}
