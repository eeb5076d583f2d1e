package neighborhood

import "fmt"

// OverallConnectionStage is the aggregate readiness signal the
// Accountant consults before trusting that a payment route exists
// (spec.md section 3).
type OverallConnectionStage int

const (
	NotConnected OverallConnectionStage = iota
	ConnectedToNeighbor
	ThreeHopsRouteFound
)

func (s OverallConnectionStage) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case ConnectedToNeighbor:
		return "ConnectedToNeighbor"
	case ThreeHopsRouteFound:
		return "ThreeHopsRouteFound"
	default:
		return "Unknown"
	}
}

// Event is one handshake event driving a bootstrap peer's
// ConnectionProgress (spec.md section 4.7's transition table).
type Event int

const (
	EventTCPOK Event = iota
	EventTCPFail
	EventGossipReceived
	EventPassGossip
	EventDeadEnd
	EventNoGossipResponse
)

// OverallConnectionStatus holds one ConnectionProgress per configured
// bootstrap peer, the can_make_routes flag supplied externally by the
// routing layer, and the aggregate stage recomputed on every promotion
// to NeighborshipEstablished (spec.md section 4.7). A non-adjacent
// transition attempt panics: per spec.md section 8, it signals a bug in
// the caller driving events, not a condition a caller should handle.
type OverallConnectionStatus struct {
	peers         map[string]*ConnectionProgress
	canMakeRoutes bool
	aggregate     OverallConnectionStage
	store         Store
}

// New builds an OverallConnectionStatus tracking exactly the given
// bootstrap peer addresses, each starting at StageZero. store may be nil,
// in which case progress is held in memory only and does not survive a
// restart.
func New(bootstrapPeers []string, store Store) *OverallConnectionStatus {
	peers := make(map[string]*ConnectionProgress, len(bootstrapPeers))
	for _, addr := range bootstrapPeers {
		peers[addr] = &ConnectionProgress{PeerAddr: addr, Stage: StageZero}
	}

	status := &OverallConnectionStatus{peers: peers, store: store}
	if store != nil {
		status.restore()
	}
	return status
}

func (s *OverallConnectionStatus) restore() {
	saved, err := s.store.LoadAll()
	if err != nil {
		log.Warnf("neighborhood: loading persisted connection progress: %v", err)
		return
	}
	for addr, progress := range saved {
		if _, tracked := s.peers[addr]; tracked {
			s.peers[addr] = progress
		}
	}
}

func (s *OverallConnectionStatus) persist(addr string) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(addr, s.peers[addr]); err != nil {
		log.Warnf("neighborhood: persisting connection progress for %s: %v", addr, err)
	}
}

// SetCanMakeRoutes updates the externally-supplied routing capability
// flag used by the aggregate recompute rule.
func (s *OverallConnectionStatus) SetCanMakeRoutes(canMakeRoutes bool) {
	s.canMakeRoutes = canMakeRoutes
}

// Aggregate returns the current aggregate connection stage.
func (s *OverallConnectionStatus) Aggregate() OverallConnectionStage {
	return s.aggregate
}

// Progress returns a copy of the tracked progress for addr, and whether
// addr is a tracked bootstrap peer at all.
func (s *OverallConnectionStatus) Progress(addr string) (ConnectionProgress, bool) {
	p, ok := s.peers[addr]
	if !ok {
		return ConnectionProgress{}, false
	}
	return *p, true
}

// Handle applies event to addr's ConnectionProgress, recomputes the
// aggregate if the peer just reached NeighborshipEstablished, and panics
// if event is not a legal transition from the peer's current stage
// (spec.md section 8).
func (s *OverallConnectionStatus) Handle(addr string, event Event, newAddrOnPassGossip string) {
	p, ok := s.peers[addr]
	if !ok {
		panic(fmt.Sprintf("neighborhood: event for untracked bootstrap peer %s", addr))
	}

	var err error
	switch event {
	case EventTCPOK:
		err = p.tcpConnectionOK()
	case EventTCPFail:
		err = p.tcpConnectionFailed()
	case EventGossipReceived:
		err = p.gossipReceived()
	case EventPassGossip:
		err = p.passGossip(newAddrOnPassGossip)
	case EventDeadEnd:
		p.deadEnd()
	case EventNoGossipResponse:
		p.noGossipResponse()
	default:
		panic(fmt.Sprintf("neighborhood: unknown event %d", event))
	}
	if err != nil {
		panic(err)
	}

	s.persist(addr)

	if p.Stage == NeighborshipEstablished {
		s.recomputeAggregate()
	}
}

// recomputeAggregate implements spec.md section 4.7's aggregate rule:
// ThreeHopsRouteFound iff can_make_routes, else ConnectedToNeighbor.
func (s *OverallConnectionStatus) recomputeAggregate() {
	if s.canMakeRoutes {
		s.aggregate = ThreeHopsRouteFound
		return
	}
	s.aggregate = ConnectedToNeighbor
}
