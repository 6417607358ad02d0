package discovery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/disasternet/chatd/internal/stats"
	"github.com/grandcat/zeroconf"
)

const (
	// serviceType is the mDNS service identifier shared by every instance.
	serviceType = "_disasternet-chat._tcp"
	domain      = "local."

	StatPeersDiscovered = "PeersDiscovered"
)

// PeerFound is a best-effort peer announcement. Announcements are not
// deduplicated and may arrive any number of times per peer; consumers
// needing a stable peer set must track advertised names themselves.
type PeerFound struct {
	Name string
	Host string
	Port int
}

// PeerHandler is invoked for every peer announcement seen on the network.
type PeerHandler func(peer PeerFound)

// Service advertises this instance over mDNS and browses for peers running
// the same service type. It shares no state with the chat server, only
// lifecycle: failures are logged and retried, never surfaced to messaging.
type Service struct {
	log      *log.Logger
	stats    stats.StatsProvider
	instance string
	port     int
	room     string
	handler  PeerHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewService prepares a discovery service advertising as
// "DisasterNet-<port>" with the configured room in the TXT record. handler
// may be nil, in which case announcements are only logged.
func NewService(logger *log.Logger, sp stats.StatsProvider, port int, room string, handler PeerHandler) *Service {
	sp.RegisterMetric(StatPeersDiscovered)

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		log:      logger,
		stats:    sp,
		instance: fmt.Sprintf("DisasterNet-%d", port),
		port:     port,
		room:     room,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Service) Run() {
	s.wg.Add(2)
	go s.advertise()
	go s.browse()
}

func (s *Service) advertise() {
	defer s.wg.Done()

	bo := backoff.WithContext(newBackOff(), s.ctx)
	op := func() error {
		srv, err := zeroconf.Register(s.instance, serviceType, domain, s.port,
			[]string{"room=" + s.room}, nil)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.server = srv
		s.mu.Unlock()
		return nil
	}

	err := backoff.RetryNotify(op, bo, func(err error, next time.Duration) {
		s.log.Printf("discovery: advertise failed, retrying in %s: %v", next.Round(time.Millisecond), err)
	})
	if err != nil {
		s.log.Printf("discovery: advertise abandoned: %v", err)
		return
	}

	s.log.Printf("discovery: advertising %q on the local network", s.instance)
}

func (s *Service) browse() {
	defer s.wg.Done()

	bo := backoff.WithContext(newBackOff(), s.ctx)
	for {
		err := s.browseOnce()
		if s.ctx.Err() != nil {
			return
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return
		}

		s.log.Printf("discovery: browse stopped, restarting in %s: %v", next.Round(time.Millisecond), err)
		select {
		case <-time.After(next):
		case <-s.ctx.Done():
			return
		}
	}
}

// browseOnce runs a single browse session, blocking until the entry stream
// closes or the service is shut down.
func (s *Service) browseOnce() error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("new resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(s.ctx, serviceType, domain, entries); err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	for entry := range entries {
		if entry == nil {
			continue
		}
		s.handleEntry(entry)
	}

	return s.ctx.Err()
}

func (s *Service) handleEntry(entry *zeroconf.ServiceEntry) {
	if entry.Instance == s.instance {
		// our own advertisement
		return
	}

	peer := PeerFound{
		Name: entry.Instance,
		Host: entry.HostName,
		Port: entry.Port,
	}

	s.log.Printf("discovery: found peer %q at %s:%d", peer.Name, peer.Host, peer.Port)
	s.stats.Incr(StatPeersDiscovered)

	if s.handler != nil {
		s.handler(peer)
	}
}

// Shutdown withdraws the advertisement and stops browsing. Skipping it
// leaves a stale record on the network until its TTL expires.
func (s *Service) Shutdown() {
	s.cancel()

	s.mu.Lock()
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry for the process lifetime
	return bo
}
