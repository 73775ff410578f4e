// Package peer implements peer discovery (C9) and peer transfer (C10): a
// UDP multicast beacon/listener pair that builds a directory of other
// running instances on the LAN, and a one-shot TCP code-drop protocol for
// sending a snippet to one of them. Grounded directly on
// discover_worker.py, code_drop_server.py, and code_drop_client.py.
package peer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
)

// ParseMulticastGroups turns "224.0.0.241:54545"-style strings into
// MulticastGroup values, as read from config.PeerConfig.MulticastGroups.
func ParseMulticastGroups(groups []string) ([]MulticastGroup, error) {
	out := make([]MulticastGroup, 0, len(groups))
	for _, g := range groups {
		host, portStr, err := net.SplitHostPort(g)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", g, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("%q: invalid port: %w", g, err)
		}
		out = append(out, MulticastGroup{Address: host, Port: port})
	}
	return out, nil
}

// MulticastGroup is one UDP multicast destination beacons are sent to and
// listeners bind against, matching the original's
// `_code_drop_multicast_groups = [("224.1.1.1", 5007), ("224.1.1.1", 5008)]`.
type MulticastGroup struct {
	Address string
	Port    int
}

// DefaultMulticastGroups mirrors the original's two-group fallback list: a
// listener tries each in order and binds to the first that succeeds, so
// more than one instance can run side by side on the same host for testing.
var DefaultMulticastGroups = []MulticastGroup{
	{Address: "224.1.1.1", Port: 5007},
	{Address: "224.1.1.1", Port: 5008},
}

const (
	readTimeout        = 1 * time.Second
	silentRoundsReport = 30 // 30 * readTimeout == 30s silent-loop report (§4.9)
	beaconBufferSize   = 1024
	multicastTTL       = 32
)

// Directory is the upserted table of discovered peers, keyed by
// (hostname, tcp_port) per PeerRecord.Key.
type Directory struct {
	mu    sync.RWMutex
	peers map[models.PeerKey]models.PeerRecord
}

// NewDirectory builds an empty peer directory.
func NewDirectory() *Directory {
	return &Directory{peers: make(map[models.PeerKey]models.PeerRecord)}
}

// Upsert inserts or replaces a peer record, keyed by (hostname, tcp_port).
func (d *Directory) Upsert(rec models.PeerRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[rec.Key()] = rec
}

// List returns a snapshot of every known peer.
func (d *Directory) List() []models.PeerRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.PeerRecord, 0, len(d.peers))
	for _, rec := range d.peers {
		out = append(out, rec)
	}
	return out
}

// Prune evicts peers whose LastSeen is older than window. A zero window is
// a no-op: peer entries never expire by default (§9 Open Question), since
// the source the discovery protocol is grounded on never expires its
// directory entries either. Callers that want eviction opt in explicitly.
func (d *Directory) Prune(window time.Duration) {
	if window <= 0 {
		return
	}
	cutoff := time.Now().Add(-window)
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, rec := range d.peers {
		if rec.LastSeen.Before(cutoff) {
			delete(d.peers, key)
		}
	}
}

// Listener binds to the first multicast group in its list that accepts a
// join, then reads beacons until its context is cancelled, upserting every
// one it parses into a Directory.
type Listener struct {
	groups    []MulticastGroup
	directory *Directory
	logger    *observability.Logger
}

// NewListener builds a Listener over the given multicast groups (falling
// back to DefaultMulticastGroups if empty), reporting discoveries into dir.
func NewListener(groups []MulticastGroup, dir *Directory, logger *observability.Logger) *Listener {
	if len(groups) == 0 {
		groups = DefaultMulticastGroups
	}
	return &Listener{groups: groups, directory: dir, logger: logger}
}

// Run binds to the first bindable group and blocks reading beacons until
// ctx is cancelled, mirroring discover_servers' "bind to any that works"
// loop and its 30-consecutive-timeout silent-loop log.
func (l *Listener) Run(ctx context.Context) error {
	conn, group, err := l.bindFirstAvailable()
	if err != nil {
		return fmt.Errorf("peer: no multicast group could be bound: %w", err)
	}
	defer conn.Close()

	if l.logger != nil {
		l.logger.Info(ctx, "peer: bound multicast listener", "address", group.Address, "port", group.Port)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, beaconBufferSize)
	silentRounds := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				silentRounds++
				if silentRounds >= silentRoundsReport {
					if l.logger != nil {
						l.logger.Info(ctx, "peer: no beacons received in the last 30 seconds")
					}
					silentRounds = 0
				}
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if l.logger != nil {
				l.logger.Warn(ctx, "peer: multicast read failed", "error", err.Error())
			}
			continue
		}
		silentRounds = 0

		rec, ok := parseBeacon(string(buf[:n]), addr.IP.String())
		if ok {
			l.directory.Upsert(rec)
		}
	}
}

func (l *Listener) bindFirstAvailable() (*net.UDPConn, MulticastGroup, error) {
	var lastErr error
	for _, g := range l.groups {
		addr := &net.UDPAddr{IP: net.ParseIP(g.Address), Port: g.Port}
		conn, err := net.ListenMulticastUDP("udp4", nil, addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, g, nil
	}
	return nil, MulticastGroup{}, lastErr
}

// parseBeacon decodes the original's "user_name:server_name:server_port"
// wire format.
func parseBeacon(payload, senderIP string) (models.PeerRecord, bool) {
	payload = strings.TrimSpace(payload)
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return models.PeerRecord{}, false
	}
	port, err := strconv.Atoi(parts[2])
	if err != nil {
		return models.PeerRecord{}, false
	}
	return models.PeerRecord{
		Username:  parts[0],
		Hostname:  parts[1],
		IPAddress: senderIP,
		TCPPort:   port,
		LastSeen:  time.Now(),
	}, true
}

// Beacon periodically announces this instance's presence to every
// configured multicast group as "<username>:<hostname>:<tcp_port>",
// grounded on BroadcastWorker's periodic send loop.
type Beacon struct {
	groups   []MulticastGroup
	username string
	hostname string
	tcpPort  int

	interval time.Duration
	cronSpec string
}

// BeaconOption configures a Beacon's send cadence.
type BeaconOption func(*Beacon)

// WithFixedInterval uses a plain time.Ticker for the common fixed-N-second
// cadence case.
func WithFixedInterval(d time.Duration) BeaconOption {
	return func(b *Beacon) { b.interval = d }
}

// WithCronSchedule uses a cron expression for the beacon cadence instead of
// a fixed interval, mirroring the teacher's internal/cron dual
// ticker/cron-job scheduling.
func WithCronSchedule(spec string) BeaconOption {
	return func(b *Beacon) { b.cronSpec = spec }
}

// NewBeacon builds a Beacon. Defaults to a 5-second fixed interval if
// neither WithFixedInterval nor WithCronSchedule is given.
func NewBeacon(groups []MulticastGroup, username, hostname string, tcpPort int, opts ...BeaconOption) *Beacon {
	if len(groups) == 0 {
		groups = DefaultMulticastGroups
	}
	b := &Beacon{groups: groups, username: username, hostname: hostname, tcpPort: tcpPort, interval: 5 * time.Second}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run sends beacons on the configured cadence until ctx is cancelled.
func (b *Beacon) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("peer: could not open beacon socket: %w", err)
	}
	defer conn.Close()

	payload := []byte(fmt.Sprintf("%s:%s:%d", b.username, b.hostname, b.tcpPort))
	send := func() {
		for _, g := range b.groups {
			dst := &net.UDPAddr{IP: net.ParseIP(g.Address), Port: g.Port}
			_, _ = conn.WriteToUDP(payload, dst)
		}
	}

	if b.cronSpec != "" {
		c := cron.New()
		if _, err := c.AddFunc(b.cronSpec, send); err != nil {
			return fmt.Errorf("peer: invalid beacon cron schedule %q: %w", b.cronSpec, err)
		}
		c.Start()
		defer c.Stop()
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	send()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			send()
		}
	}
}
